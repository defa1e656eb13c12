package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Reflex-Gravity/BarqAdl/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/metrics",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: status(http.StatusOK)},
		},
		Children: []routes.Group{
			{
				Prefix: "/learning-timeline",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: status(http.StatusAccepted)},
				},
			},
		},
	})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/metrics/learning-timeline", http.StatusAccepted},
		{"POST", "/metrics", http.StatusMethodNotAllowed},
		{"GET", "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
