package biz

import (
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Composer     *usecase.PromptComposer
	Schedule     *usecase.ScheduleUsecase
	Session      *usecase.SessionUsecase
	Conversation *usecase.ConversationUsecase
	Push         *usecase.PushUsecase
}

// Repos are the repositories the usecases depend on (Transcript may be nil)
type Repos struct {
	Schedule   repo.ScheduleRepo
	Session    repo.SessionRepo
	LLM        repo.LLMRepo
	Messenger  repo.MessengerRepo
	Transcript repo.TranscriptRepo
}

// Options contains usecase configuration
type Options struct {
	Prompts     usecase.PromptConfig
	Session     domain.SessionConfig
	CountryCode string
	Location    *time.Location
	MaxHistory  int // turns sent to the model, 0 for all
}

// NewUsecases creates all usecases
func NewUsecases(r Repos, opts Options) *Usecases {
	composer := usecase.NewPromptComposer(opts.Prompts)
	scheduleUC := usecase.NewScheduleUsecase(r.Schedule, opts.CountryCode, opts.Location)
	sessionUC := usecase.NewSessionUsecase(r.Session, composer, opts.Session)

	return &Usecases{
		Composer:     composer,
		Schedule:     scheduleUC,
		Session:      sessionUC,
		Conversation: usecase.NewConversationUsecase(sessionUC, r.LLM, r.Transcript, opts.MaxHistory),
		Push:         usecase.NewPushUsecase(scheduleUC, sessionUC, composer, r.Messenger, r.Transcript),
	}
}
