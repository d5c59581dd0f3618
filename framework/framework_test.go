package framework

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manningwu07/storyforge/params"
)

func TestHTTPGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ids": [5, 6, 7, 8]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "results", "cuda", time.Second)
	ids, err := c.Generate(context.Background(), []int{5, 6}, ParamsFrom(params.Config.Generation, 2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(ids) != 4 || ids[3] != 8 {
		t.Fatalf("ids = %v", ids)
	}

	if got["model"] != "results" || got["device"] != "cuda" {
		t.Fatalf("model/device not sent: %v", got)
	}
	if got["max_length"].(float64) != 2+128 {
		t.Fatalf("max_length = %v, want 130", got["max_length"])
	}
	if got["no_repeat_ngram_size"].(float64) != 3 {
		t.Fatalf("no_repeat_ngram_size = %v", got["no_repeat_ngram_size"])
	}
	if _, ok := got["length_penalty"]; !ok {
		t.Fatalf("length_penalty missing: %v", got)
	}
}

func TestHTTPTrainSendsConfig(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/train" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"global_step": 120, "training_loss": 2.5, "log_history": [{"step": 60, "loss": 3.1}, {"step": 120, "loss": 2.4}]}`)
	}))
	defer srv.Close()

	cfg := params.Config.Training
	c := NewHTTPClient(srv.URL, "", "", 0)
	res, err := c.Train(context.Background(), cfg, "results/checkpoint-60")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.GlobalStep != 120 || len(res.LogHistory) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got["resume_from_checkpoint"] != "results/checkpoint-60" {
		t.Fatalf("resume_from_checkpoint = %v", got["resume_from_checkpoint"])
	}
	if got["model_name_or_path"] != cfg.BaseModel || got["gradient_accumulation_steps"].(float64) != float64(cfg.GradAccumSteps) {
		t.Fatalf("training config not flattened into body: %v", got)
	}
	if got["sharing_strategy"] != cfg.SharingStrategy {
		t.Fatalf("sharing_strategy = %v", got["sharing_strategy"])
	}
}

func TestHTTPTrainFromScratchOmitsResume(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	if _, err := NewHTTPClient(srv.URL, "", "", 0).Train(context.Background(), params.Config.Training, ""); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "resume_from_checkpoint") {
		t.Fatalf("fresh run should not send resume_from_checkpoint: %s", raw)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "results", "", 0)
	_, err := c.Generate(context.Background(), []int{1}, GenerateParams{MaxLength: 129})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") || !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry status and body: %v", err)
	}

	if err := c.SaveModel(context.Background(), "results"); !errors.Is(err, ErrTrainer) {
		t.Fatalf("SaveModel err = %v, want ErrTrainer", err)
	}
}

func TestHTTPCancelledKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewHTTPClient(srv.URL, "results", "", 0)
	_, err := c.Generate(ctx, []int{1}, GenerateParams{MaxLength: 129})
	if !errors.Is(err, ErrGeneration) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrGeneration wrapping context.Canceled", err)
	}
}

func TestDecodeReply(t *testing.T) {
	var res generateResponse
	if err := DecodeReply([]byte(`{"ok": true, "result": {"ids": [1, 2, 3]}}`), &res); err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if len(res.IDs) != 3 {
		t.Fatalf("ids = %v", res.IDs)
	}

	err := DecodeReply([]byte(`{"ok": false, "error": "no such checkpoint"}`), nil)
	if err == nil || err.Error() != "no such checkpoint" {
		t.Fatalf("err = %v", err)
	}
	if err := DecodeReply([]byte(`{"ok": false}`), nil); err == nil {
		t.Fatal("expected generic failure")
	}
	if err := DecodeReply([]byte(`{"ok": true}`), nil); err != nil {
		t.Fatalf("ack without result: %v", err)
	}
}

func TestNewTask(t *testing.T) {
	a, err := NewTask(KindSave, saveRequest{OutputDir: "results"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewTask(KindSave, saveRequest{OutputDir: "results"})
	if a.TaskID == "" || a.TaskID == b.TaskID {
		t.Fatalf("task ids must be unique: %q %q", a.TaskID, b.TaskID)
	}
	if string(a.Payload) != `{"output_dir":"results"}` {
		t.Fatalf("payload = %s", a.Payload)
	}
}

type wordEncoder struct{}

func (wordEncoder) Encode(text string) ([]int, error) {
	out := make([]int, len(strings.Fields(text)))
	for i := range out {
		out[i] = 900 + i
	}
	return out, nil
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, "/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"cmpl-1","object":"text_completion","created":1,"model":"results",
			"choices":[{"index":0,"text":" and then two","finish_reason":"length","logprobs":null}]}`)
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(srv.URL+"/v1", "", "results", wordEncoder{})
	if err != nil {
		t.Fatal(err)
	}
	ids, err := m.Generate(context.Background(), []int{1, 2}, GenerateParams{MaxLength: 130, Temperature: 0.7, NoRepeatNGramSize: 3, DoSample: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []int{1, 2, 900, 901, 902}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
	if got["max_tokens"].(float64) != 128 {
		t.Fatalf("max_tokens = %v", got["max_tokens"])
	}
	if got["no_repeat_ngram_size"].(float64) != 3 {
		t.Fatalf("extra field missing: %v", got)
	}

	// the same model keeps serving requests
	if _, err := m.Generate(context.Background(), []int{1, 2, 3}, GenerateParams{MaxLength: 10}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if calls != 2 || got["max_tokens"].(float64) != 7 {
		t.Fatalf("calls = %d, max_tokens = %v", calls, got["max_tokens"])
	}
	if got["temperature"].(float64) != 0 {
		t.Fatalf("greedy request should send temperature 0: %v", got["temperature"])
	}
}

func TestNewOpenAIModelValidates(t *testing.T) {
	if _, err := NewOpenAIModel("", "", "", wordEncoder{}); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := NewOpenAIModel("", "", "m", nil); err == nil {
		t.Fatal("expected error for nil encoder")
	}
}
