package engine

import (
	"context"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

// Start creates a session and has the tutor speak an opening greeting around
// a level-appropriate topic. The greeting is turn index 0 and does not count
// toward the turn-pair cap. If the greeting cannot be generated the session
// is discarded so callers never see a half-started one.
func (e *Engine) Start(ctx context.Context, settings types.SessionSettings) (*types.Session, error) {
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	sess := e.store.Create(settings)
	topic := topicFor(settings.Proficiency)

	greeting, err := e.llm.Respond(ctx, nil, greetingDirective(topic), settings)
	if err != nil {
		e.store.Delete(sess.ID)
		return nil, err
	}

	audioRef, unavailable := e.synthesizeReply(ctx, sess, greeting, 0)

	updated, err := e.store.Mutate(sess.ID, func(s *types.Session) error {
		s.Turns = append(s.Turns, types.Turn{
			Role:     types.RoleSystem,
			Text:     greeting,
			AudioRef: audioRef,
			Index:    0,
		})
		s.LastActivity = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.SessionStarted()
	e.logger.Info("session started",
		"session_id", sess.ID,
		"target_language", settings.TargetLanguage,
		"proficiency", settings.Proficiency,
		"topic", topic,
		"greeting_audio", !unavailable)
	e.events.Publish(Event{
		SessionID: sess.ID,
		Type:      EventSessionStarted,
		State:     types.StateActive,
	})
	return updated, nil
}

// Stop ends a session at the user's request without a final spoken turn from
// them. The tutor produces a wrap-up reply and the session moves to ending.
// A failed wrap-up generation leaves the session active so the caller can
// retry.
func (e *Engine) Stop(ctx context.Context, sessionID string) (*types.TurnResult, error) {
	release, err := e.store.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != types.StateActive {
		return nil, core.NewSessionNotActiveError("session is not active and cannot be stopped")
	}

	reply, err := e.llm.Respond(ctx, sess.Turns, wrapUpDirective, sess.Settings)
	if err != nil {
		return nil, err
	}

	replyIndex := len(sess.Turns)
	audioRef, unavailable := e.synthesizeReply(ctx, sess, reply, replyIndex)

	updated, err := e.store.Mutate(sessionID, func(s *types.Session) error {
		s.Turns = append(s.Turns, types.Turn{
			Role:     types.RoleSystem,
			Text:     reply,
			AudioRef: audioRef,
			Index:    replyIndex,
		})
		s.State = types.StateEnding
		s.LastActivity = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session stopping", "session_id", sessionID, "turn_pairs", updated.TurnPairs)
	e.events.Publish(Event{
		SessionID: sessionID,
		Type:      EventSessionEnding,
		State:     types.StateEnding,
		TurnPairs: updated.TurnPairs,
	})
	return &types.TurnResult{
		ReplyText:        reply,
		ReplyAudioRef:    audioRef,
		IsSessionEnding:  true,
		AudioUnavailable: unavailable,
	}, nil
}

// Finalize moves a session from ending to ended: it generates the summary
// and grammar feedback, hands the record to the history sink, and leaves the
// session in the store for the sweeper to purge. Only an ending session can
// be finalized; failures during generation leave it in ending so Finalize
// can be retried.
func (e *Engine) Finalize(ctx context.Context, sessionID string) (*types.SessionRecord, error) {
	release, err := e.store.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != types.StateEnding {
		return nil, core.NewSessionNotActiveError("only a session awaiting wrap-up can be finalized")
	}

	summary, err := e.llm.Summarize(ctx, sess.Turns, sess.Settings)
	if err != nil {
		return nil, err
	}
	feedback, err := e.llm.Analyze(ctx, sess.Turns, sess.Settings)
	if err != nil {
		return nil, err
	}

	record := &types.SessionRecord{
		SessionID:       sess.ID,
		StartedAt:       sess.CreatedAt,
		EndedAt:         e.now(),
		PrimaryLanguage: sess.Settings.PrimaryLanguage,
		TargetLanguage:  sess.Settings.TargetLanguage,
		Proficiency:     sess.Settings.Proficiency,
		TurnPairs:       sess.TurnPairs,
		Turns:           sess.Turns,
		Summary:         summary,
		Feedback:        feedback,
	}

	// Finalization deliberately does not bump last activity: an ended
	// session has no further use and should age out on schedule.
	if _, err := e.store.Mutate(sessionID, func(s *types.Session) error {
		s.State = types.StateEnded
		return nil
	}); err != nil {
		return nil, err
	}

	if e.history != nil {
		if err := e.history.SaveRecord(ctx, record); err != nil {
			e.logger.Error("history save failed", "session_id", sessionID, "error", err)
		}
	}

	e.logger.Info("session ended", "session_id", sessionID, "turn_pairs", record.TurnPairs)
	e.events.Publish(Event{
		SessionID: sessionID,
		Type:      EventSessionEnded,
		State:     types.StateEnded,
		TurnPairs: record.TurnPairs,
	})
	return record, nil
}
