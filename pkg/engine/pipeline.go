package engine

import (
	"context"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

// Turn outcome labels for metrics.
const (
	outcomeCompleted  = "completed"
	outcomeEnding     = "ending"
	outcomeASRFailure = "asr_failure"
	outcomeLLMFailure = "llm_failure"
	outcomeRejected   = "rejected"
)

// ProcessTurn runs one full exchange: transcribe the user's audio, generate
// the tutor's reply, synthesize it, and commit both turns.
//
// The session's exclusivity token is held for the whole run, so concurrent
// turns for the same session serialize. All session mutation happens in a
// single commit after the reply is generated: a failed transcription or
// generation leaves the session exactly as it was, which makes retrying the
// same audio safe. Synthesis failures degrade to a text-only reply instead
// of failing the turn.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID string, audio []byte, format string) (*types.TurnResult, error) {
	release, err := e.store.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	started := e.now()

	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != types.StateActive {
		e.metrics.TurnProcessed(outcomeRejected, e.now().Sub(started))
		return nil, core.NewSessionNotActiveError("session is not accepting turns")
	}

	userText, err := e.asr.Transcribe(ctx, audio, format)
	if err != nil {
		e.metrics.TurnProcessed(outcomeASRFailure, e.now().Sub(started))
		e.logger.Error("transcription failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	intent := e.closingIntentFor(sess, userText)

	userTurn := types.Turn{
		Role:  types.RoleUser,
		Text:  userText,
		Index: len(sess.Turns),
	}
	history := append(sess.Turns, userTurn)

	reply, err := e.llm.Respond(ctx, history, intent.directive(), sess.Settings)
	if err != nil {
		e.metrics.TurnProcessed(outcomeLLMFailure, e.now().Sub(started))
		e.logger.Error("reply generation failed", "session_id", sessionID, "error", err)
		return nil, err
	}

	replyIndex := len(history)
	audioRef, unavailable := e.synthesizeReply(ctx, sess, reply, replyIndex)

	replyTurn := types.Turn{
		Role:     types.RoleSystem,
		Text:     reply,
		AudioRef: audioRef,
		Index:    replyIndex,
	}
	ending := intent != intentNone

	updated, err := e.store.Mutate(sessionID, func(s *types.Session) error {
		s.Turns = append(s.Turns, userTurn, replyTurn)
		s.TurnPairs++
		s.LastActivity = e.now()
		if ending {
			s.State = types.StateEnding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &types.TurnResult{
		UserText:         userText,
		ReplyText:        reply,
		ReplyAudioRef:    audioRef,
		IsSessionEnding:  ending,
		AudioUnavailable: unavailable,
	}

	outcome := outcomeCompleted
	eventType := EventTurnCompleted
	if ending {
		outcome = outcomeEnding
		eventType = EventSessionEnding
	}
	e.metrics.TurnProcessed(outcome, e.now().Sub(started))
	e.logger.Info("turn processed",
		"session_id", sessionID,
		"turn_pairs", updated.TurnPairs,
		"ending", ending,
		"audio_unavailable", unavailable)
	e.events.Publish(Event{
		SessionID: sessionID,
		Type:      eventType,
		State:     updated.State,
		TurnPairs: updated.TurnPairs,
		Result:    result,
	})
	return result, nil
}
