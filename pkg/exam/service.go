// Package exam drives the speaking mock exam through its fixed part order.
package exam

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/davronov/tg-speaking-exam/pkg/config"
	"github.com/davronov/tg-speaking-exam/pkg/db"
	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"github.com/davronov/tg-speaking-exam/pkg/questions"
	"github.com/davronov/tg-speaking-exam/pkg/scoring"
	"github.com/davronov/tg-speaking-exam/pkg/speech"
)

// AudioConverter prepares a recorded answer for transcription.
type AudioConverter interface {
	ToWAV(ctx context.Context, data []byte, ext string) (string, error)
	Duration(ctx context.Context, path string) (int, error)
}

// Prompt is the next thing to put in front of the candidate.
type Prompt struct {
	SessionID      uint
	Part           string
	Question       string
	QuestionNumber int
	QuestionTotal  int
	TimeLimit      int
	NewPart        bool
	Images         []string          // first question of part 1.2 only
	Debate         *questions.Debate // first question of part 3 only
	Exceeded       bool              // the just-accepted answer ran past its part limit
	Done           bool
	Feedback       *Feedback
}

// Feedback is the final verdict of a finished exam.
type Feedback struct {
	SessionID uint
	Result    scoring.Result
	TimedOut  bool
}

type session struct {
	id        uint
	userID    int64
	test      *questions.Test
	part      string
	index     int
	answers   []scoring.Answer
	timer     *timeoutTimer
	startedAt time.Time
}

// Service owns the in-memory exam state, one entry per user.
type Service struct {
	bank        *questions.Bank
	converter   AudioConverter
	transcriber speech.Transcriber
	scorer      scoring.Scorer
	cfg         config.ExamConfig
	rubric      RubricPolicy

	// Subscribed gates exam start on channel membership; nil disables the gate.
	Subscribed func(ctx context.Context, userID int64) (bool, error)
	// OnTimeout delivers the out-of-band verdict when the wall clock runs out.
	OnTimeout func(userID int64, fb *Feedback, err error)

	mu    sync.Mutex
	exams map[int64]*session
	now   func() time.Time
}

func NewService(bank *questions.Bank, converter AudioConverter, transcriber speech.Transcriber,
	scorer scoring.Scorer, cfg config.ExamConfig, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		bank:        bank,
		converter:   converter,
		transcriber: transcriber,
		scorer:      scorer,
		cfg:         cfg,
		rubric:      DefaultRubric,
		exams:       make(map[int64]*session),
		now:         now,
	}
}

// Active reports whether the user has an exam in progress.
func (s *Service) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exams[userID] != nil
}

// ActiveSessionID returns the persisted session id of the exam in progress.
func (s *Service) ActiveSessionID(userID int64) (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.exams[userID]
	if st == nil {
		return 0, false
	}
	return st.id, true
}

// Start opens a new exam session: registration, subscription and rate checks,
// a recorded attempt, a persisted session row and an armed wall-clock timer.
// A spent ceiling consumes a bonus mock before rejecting.
func (s *Service) Start(ctx context.Context, userID int64, sessionType string) (*Prompt, error) {
	user, err := db.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Contact == "" {
		return nil, ErrNotRegistered
	}
	if s.Subscribed != nil {
		ok, err := s.Subscribed(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotSubscribed
		}
	}

	now := s.now()
	ceiling := s.cfg.FreeAttempts
	if user.Tariff == db.TariffGold {
		ceiling = s.cfg.GoldAttempts
	}
	count, err := db.CountRecentAttempts(userID, now)
	if err != nil {
		return nil, err
	}
	if count >= ceiling {
		ok, err := db.UseBonusMock(userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &RateLimitedError{Tariff: user.Tariff, Ceiling: ceiling}
		}
		logger.Info("bonus mock consumed", "user_id", userID)
	}
	if err := db.AddAttempt(userID, now); err != nil {
		return nil, err
	}

	test := s.bank.Random()
	questionIDs, err := json.Marshal(map[string]int{"test_id": test.ID})
	if err != nil {
		return nil, err
	}
	row := &db.Session{
		UserID:      userID,
		Type:        sessionType,
		Part:        questions.PartOneOne,
		QuestionIDs: questionIDs,
		StartedAt:   now,
	}
	if err := db.CreateSession(row); err != nil {
		return nil, err
	}

	st := &session{
		id:        row.ID,
		userID:    userID,
		test:      test,
		part:      questions.PartOneOne,
		startedAt: now,
	}

	s.mu.Lock()
	if old := s.exams[userID]; old != nil {
		old.timer.Cancel()
	}
	s.exams[userID] = st
	// armed only once the state is visible, so an early fire cannot miss it
	st.timer = startTimeoutTimer(time.Duration(s.cfg.DurationSeconds)*time.Second, func() {
		s.Timeout(userID)
	})
	prompt := s.promptLocked(st)
	s.mu.Unlock()

	logger.Info("exam started", "user_id", userID, "session_id", row.ID, "test_id", test.ID, "type", sessionType)
	return prompt, nil
}

// Advance returns the next prompt, crossing part boundaries as needed; past
// the last part it finalizes the exam and returns the verdict.
func (s *Service) Advance(ctx context.Context, userID int64) (*Prompt, error) {
	s.mu.Lock()
	st := s.exams[userID]
	if st == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveExam
	}
	prompt, finished := s.advanceLocked(st)
	s.mu.Unlock()

	if finished {
		return s.finish(ctx, st, false)
	}
	return prompt, nil
}

// SubmitAnswer validates, converts and transcribes one voice answer, persists
// it and moves the exam forward. Rejected answers leave the position unchanged.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, data []byte, ext string) (*Prompt, error) {
	if len(data) < s.cfg.MinAudioBytes {
		return nil, ErrTooQuiet
	}

	s.mu.Lock()
	st := s.exams[userID]
	if st == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveExam
	}
	part := st.part
	index := st.index
	question := st.test.Questions(part)[index]
	limit := questions.TimeLimits[part]
	s.mu.Unlock()

	wavPath, err := s.converter.ToWAV(ctx, data, ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(wavPath)

	duration, err := s.converter.Duration(ctx, wavPath)
	if err != nil {
		return nil, err
	}
	if duration < s.cfg.MinAnswerSeconds {
		return nil, ErrTooShort
	}

	text, err := s.transcriber.Transcribe(ctx, wavPath, speech.PromptHint(part, question))
	if err != nil {
		return nil, err
	}

	answer := scoring.Answer{
		Part:          part,
		Question:      question,
		Transcription: text,
		Duration:      duration,
		TimeLimit:     limit,
		Exceeded:      duration > limit,
	}

	s.mu.Lock()
	if s.exams[userID] != st || st.part != part || st.index != index {
		// the exam timed out, restarted or moved on while transcribing; a
		// replacement session must never receive this answer
		s.mu.Unlock()
		return nil, ErrNoActiveExam
	}
	response := &db.Response{
		SessionID:     st.id,
		Part:          part,
		QuestionText:  question,
		Transcription: text,
		Duration:      duration,
		TimeLimit:     limit,
		Exceeded:      answer.Exceeded,
	}
	if err := db.AddResponse(response); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	st.answers = append(st.answers, answer)
	st.index++
	prompt, finished := s.advanceLocked(st)
	s.mu.Unlock()

	if finished {
		done, err := s.finish(ctx, st, false)
		if err != nil {
			return nil, err
		}
		done.Exceeded = answer.Exceeded
		return done, nil
	}
	prompt.Exceeded = answer.Exceeded
	return prompt, nil
}

// Finish ends the exam early and grades whatever was collected.
func (s *Service) Finish(ctx context.Context, userID int64) (*Feedback, error) {
	s.mu.Lock()
	st := s.exams[userID]
	if st == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveExam
	}
	delete(s.exams, userID)
	st.timer.Cancel()
	s.mu.Unlock()

	return s.complete(ctx, st, false)
}

// Timeout fires when the wall clock runs out. A timer that lost the race with
// a normal completion finds no state and does nothing.
func (s *Service) Timeout(userID int64) {
	s.mu.Lock()
	st := s.exams[userID]
	if st == nil {
		s.mu.Unlock()
		return
	}
	delete(s.exams, userID)
	st.timer.Cancel()
	s.mu.Unlock()

	logger.Info("exam timed out", "user_id", userID, "session_id", st.id)
	fb, err := s.complete(context.Background(), st, true)
	if s.OnTimeout != nil {
		s.OnTimeout(userID, fb, err)
	}
}

// advanceLocked normalizes the part pointer past answered questions. It
// returns finished=true after clearing the state, leaving completion to run
// outside the lock.
func (s *Service) advanceLocked(st *session) (*Prompt, bool) {
	for st.index >= len(st.test.Questions(st.part)) {
		next := questions.NextPart(st.part)
		if next == "" {
			delete(s.exams, st.userID)
			st.timer.Cancel()
			return nil, true
		}
		st.part = next
		st.index = 0
		if err := db.UpdateSessionPart(st.id, next); err != nil {
			logger.Error("failed to persist part transition", "user_id", st.userID, "part", next, "error", err)
		}
	}
	return s.promptLocked(st), false
}

func (s *Service) promptLocked(st *session) *Prompt {
	qs := st.test.Questions(st.part)
	p := &Prompt{
		SessionID:      st.id,
		Part:           st.part,
		Question:       qs[st.index],
		QuestionNumber: st.index + 1,
		QuestionTotal:  len(qs),
		TimeLimit:      questions.TimeLimits[st.part],
		NewPart:        st.index == 0,
	}
	if st.index == 0 {
		switch st.part {
		case questions.PartOneTwo:
			p.Images = st.test.Images(st.part)
		case questions.PartThree:
			debate := st.test.Debate
			p.Debate = &debate
		}
	}
	return p
}

func (s *Service) finish(ctx context.Context, st *session, timedOut bool) (*Prompt, error) {
	fb, err := s.complete(ctx, st, timedOut)
	if err != nil {
		return nil, err
	}
	return &Prompt{SessionID: st.id, Part: st.part, Done: true, Feedback: fb}, nil
}

// complete grades the collected answers and finalizes the session row. The
// in-memory state is already gone by the time this runs.
func (s *Service) complete(ctx context.Context, st *session, timedOut bool) (*Feedback, error) {
	if len(st.answers) == 0 {
		return nil, ErrNoAnswers
	}

	result, shortcut := s.shortcutResult(st.answers)
	if !shortcut {
		scored, err := s.scorer.Score(ctx, st.answers, timedOut)
		if err != nil {
			return nil, err
		}
		result = *scored
	}

	scores := db.Scores{
		Fluency:       result.Fluency,
		Lexical:       result.Lexical,
		Grammar:       result.Grammar,
		Pronunciation: result.Pronunciation,
		Overall:       result.Overall,
	}
	if err := db.CompleteSession(st.id, scores, result.CEFRLevel, result.Feedback, s.now()); err != nil {
		return nil, err
	}

	logger.Info("exam completed", "user_id", st.userID, "session_id", st.id,
		"overall", result.Overall, "cefr", result.CEFRLevel, "timed_out", timedOut, "shortcut", shortcut)
	return &Feedback{SessionID: st.id, Result: result, TimedOut: timedOut}, nil
}

// shortcutResult applies the fixed verdicts that skip the examiner: never
// progressing past part 1.1, or any answer inside the too-brief band.
func (s *Service) shortcutResult(answers []scoring.Answer) (scoring.Result, bool) {
	reachedPartTwo := false
	brief := false
	for _, a := range answers {
		switch a.Part {
		case questions.PartOneTwo, questions.PartTwo, questions.PartThree:
			reachedPartTwo = true
		}
		if a.Duration >= s.cfg.BriefBandLow && a.Duration <= s.cfg.BriefBandHigh {
			brief = true
		}
	}
	if !reachedPartTwo {
		return s.rubric.Incomplete(), true
	}
	if brief {
		return s.rubric.Brief(s.cfg.BriefBandLow, s.cfg.BriefBandHigh), true
	}
	return scoring.Result{}, false
}
