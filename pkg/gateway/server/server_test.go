package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunavoice/luna/pkg/core/types"
	"github.com/lunavoice/luna/pkg/engine"
	"github.com/lunavoice/luna/pkg/engine/artifacts"
	"github.com/lunavoice/luna/pkg/engine/store"
	"github.com/lunavoice/luna/pkg/gateway/config"
	"github.com/lunavoice/luna/pkg/gateway/metrics"
	"github.com/lunavoice/luna/pkg/history"
)

type stubASR struct{ text string }

func (s *stubASR) Name() string { return "stub" }
func (s *stubASR) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	return s.text, nil
}

type stubLLM struct{ reply string }

func (s *stubLLM) Name() string { return "stub" }
func (s *stubLLM) Respond(ctx context.Context, history []types.Turn, directive string, settings types.SessionSettings) (string, error) {
	return s.reply, nil
}
func (s *stubLLM) Summarize(ctx context.Context, history []types.Turn, settings types.SessionSettings) (string, error) {
	return "A short practice chat.", nil
}
func (s *stubLLM) Analyze(ctx context.Context, history []types.Turn, settings types.SessionSettings) ([]types.Feedback, error) {
	return []types.Feedback{{Original: "a", Corrected: "b", Explanation: "c"}}, nil
}

type stubTTS struct{}

func (stubTTS) Name() string { return "stub" }
func (stubTTS) Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error) {
	return []byte("RIFF-fake"), nil
}

type testServer struct {
	ts      *httptest.Server
	asr     *stubASR
	llm     *stubLLM
	history *history.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	am, err := artifacts.New(filepath.Join(dir, "audio"))
	require.NoError(t, err)
	hist, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	rig := &testServer{
		asr:     &stubASR{text: "hola"},
		llm:     &stubLLM{reply: "¡Hola! ¿Cómo estás?"},
		history: hist,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mtr := metrics.New()
	eng, err := engine.New(engine.Config{}, engine.Deps{
		Store:     store.New(),
		Artifacts: am,
		ASR:       rig.asr,
		LLM:       rig.llm,
		TTS:       stubTTS{},
		History:   hist,
		Metrics:   mtr,
		Logger:    logger,
	})
	require.NoError(t, err)

	cfg := config.Config{
		AudioDir:       am.Dir(),
		MaxUploadBytes: 1 << 20,
	}
	srv := New(cfg, Deps{
		Engine:  eng,
		History: hist,
		Metrics: mtr,
		Logger:  logger,
	})
	rig.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(rig.ts.Close)
	return rig
}

func (s *testServer) startSession(t *testing.T) types.Session {
	t.Helper()
	body := `{"primary_language":"English","target_language":"Spanish","proficiency_level":"B1"}`
	resp, err := http.Post(s.ts.URL+"/api/v1/sessions/start", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess types.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	return sess
}

func (s *testServer) postTurn(t *testing.T, sessionID, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	fw, err := mp.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/sessions/%s/turn", s.ts.URL, sessionID),
		mp.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func decodeErrorType(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Type
}

func TestStartSession(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, types.StateActive, sess.State)
	require.Len(t, sess.Turns, 1)
	assert.Equal(t, types.RoleSystem, sess.Turns[0].Role)
	assert.True(t, strings.HasPrefix(sess.Turns[0].AudioRef, "/static/"), "audio ref = %q", sess.Turns[0].AudioRef)

	// Settings were persisted as defaults.
	resp, err := http.Get(s.ts.URL + "/api/v1/settings")
	require.NoError(t, err)
	defer resp.Body.Close()
	var settings types.SessionSettings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	assert.Equal(t, "Spanish", settings.TargetLanguage)
}

func TestStartSessionInvalidSettings(t *testing.T) {
	s := newTestServer(t)
	body := `{"primary_language":"English","target_language":"Klingon","proficiency_level":"B1"}`
	resp, err := http.Post(s.ts.URL+"/api/v1/sessions/start", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request_error", decodeErrorType(t, resp))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestTurnRoundTrip(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	resp := s.postTurn(t, sess.ID, "clip.webm")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "hola", result.UserText)
	assert.Equal(t, s.llm.reply, result.ReplyText)
	assert.False(t, result.IsSessionEnding)

	// The reply audio is fetchable at its ref.
	audioResp, err := http.Get(s.ts.URL + result.ReplyAudioRef)
	require.NoError(t, err)
	defer audioResp.Body.Close()
	require.Equal(t, http.StatusOK, audioResp.StatusCode)
	audio, err := io.ReadAll(audioResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "RIFF-fake", string(audio))
}

func TestTurnRejectsBadExtension(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	resp := s.postTurn(t, sess.ID, "malware.exe")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request_error", decodeErrorType(t, resp))
}

func TestTurnMissingFile(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	require.NoError(t, mp.WriteField("note", "no audio here"))
	require.NoError(t, mp.Close())

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/sessions/%s/turn", s.ts.URL, sess.ID),
		mp.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTurnUnknownSession(t *testing.T) {
	s := newTestServer(t)
	resp := s.postTurn(t, "does-not-exist", "clip.wav")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", decodeErrorType(t, resp))
}

func TestStopEndHistoryFlow(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	resp := s.postTurn(t, sess.ID, "clip.wav")
	resp.Body.Close()

	stopResp, err := http.Post(fmt.Sprintf("%s/api/v1/sessions/%s/stop", s.ts.URL, sess.ID), "", nil)
	require.NoError(t, err)
	defer stopResp.Body.Close()
	require.Equal(t, http.StatusOK, stopResp.StatusCode)
	var stopResult types.TurnResult
	require.NoError(t, json.NewDecoder(stopResp.Body).Decode(&stopResult))
	assert.True(t, stopResult.IsSessionEnding)

	// Turns are now rejected with a conflict.
	rejected := s.postTurn(t, sess.ID, "clip.wav")
	defer rejected.Body.Close()
	assert.Equal(t, http.StatusConflict, rejected.StatusCode)
	assert.Equal(t, "session_not_active", decodeErrorType(t, rejected))

	endResp, err := http.Post(fmt.Sprintf("%s/api/v1/sessions/%s/end", s.ts.URL, sess.ID), "", nil)
	require.NoError(t, err)
	defer endResp.Body.Close()
	require.Equal(t, http.StatusOK, endResp.StatusCode)
	var record types.SessionRecord
	require.NoError(t, json.NewDecoder(endResp.Body).Decode(&record))
	assert.Equal(t, sess.ID, record.SessionID)
	assert.Equal(t, "A short practice chat.", record.Summary)
	require.Len(t, record.Feedback, 1)

	// The record shows up in history.
	listResp, err := http.Get(s.ts.URL + "/api/v1/history")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list struct {
		Sessions []history.Summary `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, sess.ID, list.Sessions[0].SessionID)

	getResp, err := http.Get(s.ts.URL + "/api/v1/history/" + sess.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, s.ts.URL+"/api/v1/history/"+sess.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	// Defaults before anything is saved.
	resp, err := http.Get(s.ts.URL + "/api/v1/settings")
	require.NoError(t, err)
	defer resp.Body.Close()
	var defaults types.SessionSettings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&defaults))
	assert.Equal(t, "English", defaults.PrimaryLanguage)

	body := `{"primary_language":"English","target_language":"French","proficiency_level":"A2","speech_rate":0.8}`
	saveResp, err := http.Post(s.ts.URL+"/api/v1/settings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer saveResp.Body.Close()
	require.Equal(t, http.StatusOK, saveResp.StatusCode)

	resp2, err := http.Get(s.ts.URL + "/api/v1/settings")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var saved types.SessionSettings
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&saved))
	assert.Equal(t, "French", saved.TargetLanguage)
	assert.Equal(t, 0.8, saved.SpeechRate)
}

func TestSettingsRejectsBadSpeechRate(t *testing.T) {
	s := newTestServer(t)
	body := `{"primary_language":"English","target_language":"French","proficiency_level":"A2","speech_rate":3.0}`
	resp, err := http.Post(s.ts.URL+"/api/v1/settings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	s.startSession(t)

	resp, err := http.Get(s.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ActiveSessions)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.startSession(t)

	resp, err := http.Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "luna_sessions_started_total 1")
}

func TestUnknownRouteEnvelope(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/api/v1/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found_error", decodeErrorType(t, resp))
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)
	sess := s.startSession(t)

	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") +
		"/api/v1/sessions/" + sess.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := s.postTurn(t, sess.ID, "clip.wav")
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev engine.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, engine.EventTurnCompleted, ev.Type)
	assert.Equal(t, sess.ID, ev.SessionID)
	assert.Equal(t, 1, ev.TurnPairs)
	require.NotNil(t, ev.Result)
	assert.Equal(t, "hola", ev.Result.UserText)
}

func TestEventStreamUnknownSession(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/api/v1/sessions/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
