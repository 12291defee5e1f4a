package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
)

func TestStartSessionEndpoint(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	status, body := postJSON(t, server.URL+"/api/sessions", map[string]any{
		"learnerId":         "L1",
		"topicId":           "T1",
		"initialDifficulty": "Easy",
		"totalSets":         2,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var start domain.StartResult
	if err := json.Unmarshal(body, &start); err != nil {
		t.Fatalf("unmarshal start result: %v", err)
	}
	if start.SessionID == "" || len(start.Set.Questions) != 3 {
		t.Fatalf("unexpected start result: %+v", start)
	}
	if start.Set.TimeLimitSeconds != 90 {
		t.Fatalf("expected 30s per question, got %d", start.Set.TimeLimitSeconds)
	}
}

func TestSubmitSetEndpointCompletesSession(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	_, body := postJSON(t, server.URL+"/api/sessions", map[string]any{
		"learnerId":         "L1",
		"topicId":           "T1",
		"initialDifficulty": "Easy",
		"totalSets":         1,
	})
	var start domain.StartResult
	if err := json.Unmarshal(body, &start); err != nil {
		t.Fatalf("unmarshal start result: %v", err)
	}

	answers := make(map[string]string, len(start.Set.Questions))
	for _, q := range start.Set.Questions {
		answers[q.ID] = "right"
	}
	status, body := postJSON(t, server.URL+"/api/sessions/"+start.SessionID+"/submit", map[string]any{
		"set":               start.Set,
		"answers":           answers,
		"completionSeconds": 30,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result domain.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal submit result: %v", err)
	}
	if !result.Completed || result.Final == nil {
		t.Fatalf("expected completed session, got %+v", result)
	}
	if result.SetResult.Score != 100 {
		t.Fatalf("expected perfect score, got %.1f", result.SetResult.Score)
	}
}

func TestStartSessionErrors(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	status, _ := postJSON(t, server.URL+"/api/sessions", map[string]any{
		"learnerId":         "L1",
		"topicId":           "T1",
		"initialDifficulty": "Impossible",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad difficulty, got %d", status)
	}

	status, _ = postJSON(t, server.URL+"/api/sessions", map[string]any{
		"learnerId":         "L1",
		"topicId":           "missing",
		"initialDifficulty": "Easy",
	})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown topic, got %d", status)
	}
}

func TestSessionStatusEndpoint(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/sessions/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}

	_, body := postJSON(t, server.URL+"/api/sessions", map[string]any{
		"learnerId":         "L1",
		"topicId":           "T1",
		"initialDifficulty": "Easy",
	})
	var start domain.StartResult
	if err := json.Unmarshal(body, &start); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp, err = http.Get(server.URL + "/api/sessions/" + start.SessionID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	var session domain.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.CurrentSet != 1 || session.Completed {
		t.Fatalf("unexpected status: %+v", session)
	}
}

func postJSON(t *testing.T, url string, payload any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, buf.Bytes()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := NewHandler(newTestService(), 5)
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", handler.Routes()))
	return httptest.NewServer(mux)
}

// newTestService wires a service over a small in-memory bank where every
// question's correct option is the literal "right".
func newTestService() *app.SessionService {
	bank := memory.NewQuestionBank()
	bank.AddTopic(domain.Topic{ID: "T1", Name: "Arithmetic"})
	for _, level := range []domain.DifficultyLevel{domain.Easy, domain.Medium} {
		setID := "t1-" + level.String()
		questions := make([]domain.Question, 0, 3)
		for i := 0; i < 3; i++ {
			questions = append(questions, domain.Question{
				ID:            setID + "-q" + string(rune('a'+i)),
				Prompt:        "Pick the right option",
				Options:       []string{"right", "wrong"},
				CorrectOption: "right",
				Marks:         1,
			})
		}
		bank.AddSet(domain.QuestionSet{
			ID: setID, TopicID: "T1", Difficulty: level,
			MinQuestions: 3, MaxQuestions: 3,
		}, questions)
	}
	return app.NewSessionService(bank, memory.NewAttemptRecorder(),
		memory.NewSessionStore(), memory.NewTrendStore(), domain.DefaultLadder())
}
