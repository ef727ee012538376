package data

import (
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	Schedule   repo.ScheduleRepo
	Messenger  repo.MessengerRepo
	LLM        repo.LLMRepo
	Session    repo.SessionRepo
	Transcript repo.TranscriptRepo
}

// NewRepositories creates all repositories.
// An empty transcriptDBPath disables the transcript log.
func NewRepositories(
	sheetsClient RecordReader,
	sheetNames SheetNames,
	whatsappClient TextSender,
	chatClient ChatClient,
	transcriptDBPath string,
) (*Repositories, error) {
	repos := &Repositories{
		Schedule:  NewScheduleRepo(sheetsClient, sheetNames),
		Messenger: NewWhatsAppRepo(whatsappClient),
		LLM:       NewLLMRepo(chatClient),
		Session:   NewSessionRepo(),
	}

	if transcriptDBPath != "" {
		transcriptRepo, err := NewTranscriptRepo(transcriptDBPath)
		if err != nil {
			return nil, err
		}
		repos.Transcript = transcriptRepo
	}

	return repos, nil
}

// Close releases repository resources
func (r *Repositories) Close() error {
	if r.Transcript != nil {
		return r.Transcript.Close()
	}
	return nil
}
