package openai_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Reflex-Gravity/BarqAdl/internal/agents"
	"github.com/Reflex-Gravity/BarqAdl/internal/openai"
	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
	"github.com/Reflex-Gravity/BarqAdl/pkg/middleware"
	"github.com/Reflex-Gravity/BarqAdl/pkg/module"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	got     pipeline.Request
	traceID string
	stages  []pipeline.Stage
	answer  string
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request, opts ...pipeline.Option) (*pipeline.Result, error) {
	f.got = req
	f.traceID = observe.TraceID(ctx)

	o := pipeline.Resolve(opts...)
	for _, st := range f.stages {
		if o.Progress != nil {
			o.Progress(pipeline.Event{Stage: st, Message: string(st) + " now"})
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Answer: f.answer, TraceID: f.traceID}, nil
}

func newServer(r openai.Runner) *httptest.Server {
	router := module.NewRouter()
	router.Mount(openai.NewModule(r, discard, 1<<20, &middleware.CORSConfig{}))
	return httptest.NewServer(router)
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	res, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestChatRequestQuery(t *testing.T) {
	req := openai.ChatRequest{Messages: []openai.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "second"},
	}}

	q, ok := req.Query()
	if !ok || q != "second" {
		t.Errorf("query: %q ok=%v", q, ok)
	}

	want := []agents.Turn{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "answer"},
	}
	if diff := cmp.Diff(want, req.History()); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}

	empty := openai.ChatRequest{Messages: []openai.Message{{Role: "assistant", Content: "hello"}}}
	if _, ok := empty.Query(); ok {
		t.Error("expected no user message")
	}
	if empty.History() != nil {
		t.Error("single message has no history")
	}
}

func TestCompletion(t *testing.T) {
	runner := &fakeRunner{answer: "العامل يستحق"}
	srv := newServer(runner)
	defer srv.Close()

	res := post(t, srv, `{"model": "barqadl-legal-ai", "messages": [{"role": "user", "content": "unpaid wages"}]}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", res.StatusCode)
	}

	var got openai.Completion
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}

	if got.Object != "chat.completion" || got.Model != openai.ModelID {
		t.Errorf("envelope: %+v", got)
	}
	if got.ID != "chatcmpl-"+runner.traceID[:12] {
		t.Errorf("id: got %s, trace %s", got.ID, runner.traceID)
	}
	if len(got.Choices) != 1 || got.Choices[0].Message.Content != "العامل يستحق" || got.Choices[0].FinishReason != "stop" {
		t.Errorf("choices: %+v", got.Choices)
	}
	if got.Usage.PromptTokens != 12 || got.Usage.CompletionTokens != 12 || got.Usage.TotalTokens != 24 {
		t.Errorf("usage: %+v", got.Usage)
	}
	if runner.got.Query != "unpaid wages" {
		t.Errorf("query: %q", runner.got.Query)
	}
}

func TestCompletionNoUserMessage(t *testing.T) {
	srv := newServer(&fakeRunner{})
	defer srv.Close()

	res := post(t, srv, `{"messages": [{"role": "system", "content": "hi"}]}`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", res.StatusCode)
	}

	var got struct {
		Error openai.APIError `json:"error"`
	}
	json.NewDecoder(res.Body).Decode(&got)
	if got.Error.Message != "No user message found" || got.Error.Type != "invalid_request_error" {
		t.Errorf("error: %+v", got.Error)
	}
}

func TestCompletionFailure(t *testing.T) {
	srv := newServer(&fakeRunner{err: errors.New("upstream exploded")})
	defer srv.Close()

	res := post(t, srv, `{"messages": [{"role": "user", "content": "q"}]}`)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", res.StatusCode)
	}

	var got struct {
		Error openai.APIError `json:"error"`
	}
	json.NewDecoder(res.Body).Decode(&got)
	if got.Error.Type != "server_error" || strings.Contains(got.Error.Message, "exploded") {
		t.Errorf("error: %+v", got.Error)
	}
}

func readChunks(t *testing.T, res *http.Response) ([]openai.Chunk, string) {
	t.Helper()
	var (
		chunks []openai.Chunk
		last   string
	)
	sc := bufio.NewScanner(res.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		last = data
		if data == "[DONE]" {
			continue
		}
		var c openai.Chunk
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			t.Fatalf("decode chunk %q: %v", data, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, last
}

func TestCompletionStream(t *testing.T) {
	runner := &fakeRunner{
		answer: "final answer",
		stages: []pipeline.Stage{pipeline.StageClassifying, pipeline.StageJudged, pipeline.StageDone},
	}
	srv := newServer(runner)
	defer srv.Close()

	res := post(t, srv, `{"stream": true, "messages": [{"role": "user", "content": "a"}, {"role": "assistant", "content": "b"}, {"role": "user", "content": "c"}]}`)
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type: %s", ct)
	}

	chunks, last := readChunks(t, res)
	if last != "[DONE]" {
		t.Errorf("last frame: %q", last)
	}
	if len(chunks) != 4 {
		t.Fatalf("chunks: got %d, want 4 (2 progress, answer, stop)", len(chunks))
	}

	id := "chatcmpl-" + runner.traceID[:12]
	for _, c := range chunks {
		if c.ID != id || c.Object != "chat.completion.chunk" || c.Model != openai.ModelID {
			t.Errorf("chunk envelope: %+v", c)
		}
	}

	if got := chunks[0].Choices[0].Delta.Content; got != "\n> **[classifying]** classifying now\n\n" {
		t.Errorf("progress content: %q", got)
	}
	if chunks[0].Choices[0].FinishReason != nil {
		t.Error("progress chunk must not finish")
	}
	if got := chunks[2].Choices[0].Delta.Content; got != "final answer" {
		t.Errorf("answer chunk: %q", got)
	}
	stop := chunks[3].Choices[0]
	if stop.Delta.Content != "" || stop.FinishReason == nil || *stop.FinishReason != "stop" {
		t.Errorf("stop chunk: %+v", stop)
	}

	if runner.got.Query != "c" || len(runner.got.History) != 2 {
		t.Errorf("request: %+v", runner.got)
	}
}

func TestCompletionStreamFailure(t *testing.T) {
	srv := newServer(&fakeRunner{err: errors.New("upstream exploded")})
	defer srv.Close()

	res := post(t, srv, `{"stream": true, "messages": [{"role": "user", "content": "q"}]}`)

	chunks, last := readChunks(t, res)
	if last != "[DONE]" {
		t.Errorf("last frame: %q", last)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	c := chunks[0].Choices[0]
	if !strings.HasPrefix(c.Delta.Content, "\n\nError: ") || c.FinishReason == nil || *c.FinishReason != "stop" {
		t.Errorf("error chunk: %+v", c)
	}
	if strings.Contains(c.Delta.Content, "exploded") {
		t.Error("error chunk leaks internal detail")
	}
}

func TestModels(t *testing.T) {
	srv := newServer(&fakeRunner{})
	defer srv.Close()

	res, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	var got openai.ModelList
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Object != "list" || len(got.Data) != 1 {
		t.Fatalf("list: %+v", got)
	}
	if m := got.Data[0]; m.ID != "barqadl-legal-ai" || m.Object != "model" || m.OwnedBy != "barqadl" {
		t.Errorf("model: %+v", m)
	}
}
