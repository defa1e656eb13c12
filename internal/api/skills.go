package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/Reflex-Gravity/BarqAdl/internal/skills"
	"github.com/Reflex-Gravity/BarqAdl/pkg/handlers"
	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
	"github.com/Reflex-Gravity/BarqAdl/pkg/storage"
)

// SkillListing is the cached skill set of one domain.
type SkillListing struct {
	Domain     string         `json:"domain"`
	SkillCount int            `json:"skillCount"`
	Skills     []skills.Skill `json:"skills"`
	Archived   bool           `json:"archived"`
}

type skillsHandler struct {
	equipper *skills.Equipper
	archive  storage.System
	logger   *slog.Logger
}

func newSkillsHandler(equipper *skills.Equipper, archive storage.System, logger *slog.Logger) *skillsHandler {
	return &skillsHandler{
		equipper: equipper,
		archive:  archive,
		logger:   logger.With("handler", "skills"),
	}
}

func (h *skillsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/skills",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{domain}", Handler: h.find},
			{Method: "GET", Pattern: "/{domain}/archive", Handler: h.download},
		},
	}
}

func (h *skillsHandler) find(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")

	list, err := h.equipper.Lookup(r.Context(), domain)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []skills.Skill{}
	}

	var archived bool
	if h.archive != nil {
		archived, err = h.archive.Exists(r.Context(), skills.ArchiveKey(domain))
		if err != nil {
			h.logger.WarnContext(r.Context(), "archive check failed", "domain", domain, "error", err)
		}
	}

	handlers.RespondJSON(w, http.StatusOK, SkillListing{
		Domain:     domain,
		SkillCount: len(list),
		Skills:     list,
		Archived:   archived,
	})
}

// download streams the archived skill set for a domain as an attachment.
func (h *skillsHandler) download(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, storage.ErrDisabled)
		return
	}

	key := skills.ArchiveKey(r.PathValue("domain"))
	data, err := h.archive.Get(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
