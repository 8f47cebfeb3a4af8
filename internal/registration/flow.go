package registration

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"velorent/internal/domain"
	"velorent/internal/identity"
	"velorent/internal/registration/metrics"
	"velorent/pkg/platform/sentinel"
)

// SupportedLanguages are the interface languages offered at the first step.
var SupportedLanguages = []string{"ru", "tg", "uz"}

// ReplyKind tells the transport which keyboard to attach to a prompt.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	ReplyLanguages
	ReplyPhoneRequest
	ReplyDocumentChoice
	ReplyMainMenu
)

// Prompt is one message the transport should render, addressed by translation
// key so the flow stays free of user-facing text.
type Prompt struct {
	Key   string
	Args  []any
	Reply ReplyKind
}

// Outcome is what a handled action produced. User is non-nil once a durable
// user exists for the sender (freshly committed or pre-existing).
type Outcome struct {
	Prompts []Prompt
	User    *domain.User
}

func prompt(key string, reply ReplyKind, args ...any) Prompt {
	return Prompt{Key: key, Args: args, Reply: reply}
}

// Sender identifies who the transport delivered an action for.
type Sender struct {
	TelegramID int64
	Username   string
}

// RegistrationCommitter is the committer port; see Committer.Commit.
type RegistrationCommitter interface {
	Commit(ctx context.Context, telegramID int64, staged *StagedRegistration) (*domain.User, error)
}

// Flow drives the registration conversation. It is single-flow-per-identifier:
// the transport's per-chat delivery order serializes concurrent messages from
// the same sender, so the flow itself holds no locks.
type Flow struct {
	staging   StagingStore
	users     identity.UserStore
	committer RegistrationCommitter
	reserved  []string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewFlow(
	staging StagingStore,
	users identity.UserStore,
	committer RegistrationCommitter,
	reservedLabels []string,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Flow {
	return &Flow{
		staging:   staging,
		users:     users,
		committer: committer,
		reserved:  reservedLabels,
		logger:    logger,
		metrics:   m,
	}
}

// Start resolves the entry point: registered users go straight to steady
// state, staged-but-incomplete registrations resume at their earliest missing
// field, everyone else begins with language choice.
func (f *Flow) Start(ctx context.Context, sender Sender) (Outcome, error) {
	user, err := f.users.ByTelegramID(ctx, sender.TelegramID)
	if err == nil {
		// A durable user never has staged leftovers worth keeping.
		if err := f.staging.Clear(ctx, sender.TelegramID); err != nil {
			return Outcome{}, err
		}
		return Outcome{
			User:    user,
			Prompts: []Prompt{prompt("start.welcome_back", ReplyMainMenu, user.FullName)},
		}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Outcome{}, err
	}

	staged, err := f.staging.Get(ctx, sender.TelegramID)
	if err == nil && staged.Personal.FullName != "" && !staged.IsComplete() {
		if err := f.staging.ExtendTTL(ctx, sender.TelegramID); err != nil {
			return Outcome{}, err
		}
		return f.resume(ctx, sender, staged)
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Outcome{}, err
	}

	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepChoosingLanguage}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{
		prompt("registration.welcome", ReplyNone),
		prompt("registration.choose_language", ReplyLanguages),
	}}, nil
}

// resume re-enters the flow at the earliest missing field.
func (f *Flow) resume(ctx context.Context, sender Sender, staged *StagedRegistration) (Outcome, error) {
	missing := staged.MissingFields()
	next := missing[0]

	var state FlowState
	var p Prompt
	switch next {
	case "full_name":
		state = FlowState{Step: StepEnteringName}
		p = prompt("registration.enter_name", ReplyNone)
	case "phone":
		state = FlowState{Step: StepEnteringPhone}
		p = prompt("registration.share_phone", ReplyPhoneRequest)
	case "id_document":
		state = FlowState{Step: StepChoosingDocument}
		p = prompt("registration.choose_document", ReplyDocumentChoice)
	default: // selfie
		state = FlowState{Step: StepAwaitingSelfie}
		p = prompt("registration.send_selfie", ReplyNone)
	}
	if err := f.staging.SetState(ctx, sender.TelegramID, state); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{prompt("registration.resume", ReplyNone), p}}, nil
}

// HandleLanguage records the chosen interface language.
func (f *Flow) HandleLanguage(ctx context.Context, sender Sender, language string) (Outcome, error) {
	if !isSupportedLanguage(language) {
		return Outcome{Prompts: []Prompt{prompt("registration.choose_language", ReplyLanguages)}}, nil
	}
	if err := f.staging.SetLanguage(ctx, sender.TelegramID, language); err != nil {
		return Outcome{}, err
	}
	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepEnteringName}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{prompt("registration.enter_name", ReplyNone)}}, nil
}

// HandleText routes free text by the current step. Validation failures
// re-prompt without a state change and never escape as errors.
func (f *Flow) HandleText(ctx context.Context, sender Sender, text string) (Outcome, error) {
	state, err := f.staging.State(ctx, sender.TelegramID)
	if err != nil {
		return Outcome{}, err
	}

	switch state.Step {
	case StepEnteringName:
		return f.acceptName(ctx, sender, text)
	case StepEnteringPhone:
		phone := strings.TrimSpace(text)
		if len(phone) < 10 {
			f.logger.Debug("phone rejected", "telegram_id", sender.TelegramID)
			return Outcome{Prompts: []Prompt{prompt("registration.phone_invalid", ReplyPhoneRequest)}}, nil
		}
		return f.acceptPhone(ctx, sender, phone)
	case StepChoosingLanguage:
		return Outcome{Prompts: []Prompt{prompt("registration.choose_language", ReplyLanguages)}}, nil
	case StepChoosingDocument:
		return Outcome{Prompts: []Prompt{prompt("registration.choose_document", ReplyDocumentChoice)}}, nil
	case StepAwaitingPrimary:
		return Outcome{Prompts: []Prompt{prompt("registration.need_photo_primary", ReplyNone)}}, nil
	case StepAwaitingSelfie:
		return Outcome{Prompts: []Prompt{prompt("registration.need_photo_selfie", ReplyNone)}}, nil
	default:
		return f.Start(ctx, sender)
	}
}

// HandleContact accepts a structured contact-share payload; the transport has
// already validated it, so no length check applies.
func (f *Flow) HandleContact(ctx context.Context, sender Sender, phone string) (Outcome, error) {
	state, err := f.staging.State(ctx, sender.TelegramID)
	if err != nil {
		return Outcome{}, err
	}
	if state.Step != StepEnteringPhone {
		return f.HandleText(ctx, sender, phone)
	}
	return f.acceptPhone(ctx, sender, phone)
}

func (f *Flow) acceptName(ctx context.Context, sender Sender, text string) (Outcome, error) {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < 2 || f.isReservedLabel(name) {
		f.logger.Debug("name rejected", "telegram_id", sender.TelegramID)
		return Outcome{Prompts: []Prompt{prompt("registration.name_invalid", ReplyNone)}}, nil
	}

	data := f.personal(ctx, sender.TelegramID)
	data.FullName = name
	data.Username = sender.Username
	if err := f.staging.SetPersonalData(ctx, sender.TelegramID, data); err != nil {
		return Outcome{}, err
	}
	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepEnteringPhone}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{prompt("registration.share_phone", ReplyPhoneRequest)}}, nil
}

func (f *Flow) acceptPhone(ctx context.Context, sender Sender, phone string) (Outcome, error) {
	data := f.personal(ctx, sender.TelegramID)
	data.Phone = phone
	if data.Username == "" {
		data.Username = sender.Username
	}
	if err := f.staging.SetPersonalData(ctx, sender.TelegramID, data); err != nil {
		return Outcome{}, err
	}
	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepChoosingDocument}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{prompt("registration.choose_document", ReplyDocumentChoice)}}, nil
}

// HandleDocumentChoice records which primary-document variant to collect. A
// category that is already staged is refused without a state change so the
// user cannot double-submit mid-flow.
func (f *Flow) HandleDocumentChoice(ctx context.Context, sender Sender, docType domain.DocumentType) (Outcome, error) {
	if docType != domain.DocPassport && docType != domain.DocDriverLicense {
		return Outcome{Prompts: []Prompt{prompt("registration.choose_document", ReplyDocumentChoice)}}, nil
	}

	state, err := f.staging.State(ctx, sender.TelegramID)
	if err != nil {
		return Outcome{}, err
	}
	if state.Step != StepChoosingDocument {
		return Outcome{Prompts: []Prompt{prompt("registration.choose_document", ReplyDocumentChoice)}}, nil
	}

	staged, err := f.staging.Get(ctx, sender.TelegramID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return Outcome{}, err
	}
	if staged != nil && staged.HasPrimaryDocument() {
		return Outcome{Prompts: []Prompt{prompt("registration.document_already_staged", ReplyDocumentChoice)}}, nil
	}

	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepAwaitingPrimary, ChosenDocument: docType}); err != nil {
		return Outcome{}, err
	}
	key := "registration.send_passport"
	if docType == domain.DocDriverLicense {
		key = "registration.send_license"
	}
	return Outcome{Prompts: []Prompt{prompt(key, ReplyNone)}}, nil
}

// HandlePhoto stages a received artifact reference and commits when the staged
// registration becomes complete.
func (f *Flow) HandlePhoto(ctx context.Context, sender Sender, ref string) (Outcome, error) {
	state, err := f.staging.State(ctx, sender.TelegramID)
	if err != nil {
		return Outcome{}, err
	}

	switch state.Step {
	case StepAwaitingPrimary:
		docType := state.ChosenDocument
		if docType == "" {
			docType = domain.DocPassport
		}
		if err := f.staging.SetDocumentRef(ctx, sender.TelegramID, docType, ref); err != nil {
			return Outcome{}, err
		}
		f.metrics.RecordArtifactStaged(string(docType))
		return f.afterArtifact(ctx, sender, "registration.primary_received")
	case StepAwaitingSelfie:
		if err := f.staging.SetDocumentRef(ctx, sender.TelegramID, domain.DocSelfie, ref); err != nil {
			return Outcome{}, err
		}
		f.metrics.RecordArtifactStaged(string(domain.DocSelfie))
		return f.afterArtifact(ctx, sender, "registration.selfie_received")
	default:
		return Outcome{Prompts: []Prompt{prompt("registration.unexpected_photo", ReplyNone)}}, nil
	}
}

// afterArtifact decides what follows a stored artifact: commit when complete,
// otherwise advance to the next missing artifact.
func (f *Flow) afterArtifact(ctx context.Context, sender Sender, receivedKey string) (Outcome, error) {
	staged, err := f.staging.Get(ctx, sender.TelegramID)
	if err != nil {
		return Outcome{}, err
	}

	if staged.IsComplete() {
		return f.commit(ctx, sender, staged, receivedKey)
	}

	if _, ok := staged.Documents[domain.DocSelfie]; !ok {
		if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepAwaitingSelfie}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Prompts: []Prompt{
			prompt(receivedKey, ReplyNone),
			prompt("registration.send_selfie", ReplyNone),
		}}, nil
	}

	if err := f.staging.SetState(ctx, sender.TelegramID, FlowState{Step: StepChoosingDocument}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Prompts: []Prompt{
		prompt(receivedKey, ReplyNone),
		prompt("registration.choose_document", ReplyDocumentChoice),
	}}, nil
}

func (f *Flow) commit(ctx context.Context, sender Sender, staged *StagedRegistration, receivedKey string) (Outcome, error) {
	user, err := f.committer.Commit(ctx, sender.TelegramID, staged)
	if errors.Is(err, sentinel.ErrAlreadyRegistered) {
		// Someone won the race; redirect to steady state as if registered.
		if err := f.staging.Clear(ctx, sender.TelegramID); err != nil {
			return Outcome{}, err
		}
		existing, err := f.users.ByTelegramID(ctx, sender.TelegramID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			User:    existing,
			Prompts: []Prompt{prompt("start.welcome_back", ReplyMainMenu, existing.FullName)},
		}, nil
	}
	if err != nil {
		// Staged data survived; the user retries without re-uploading.
		return Outcome{Prompts: []Prompt{prompt("registration.retry", ReplyNone)}}, nil
	}

	if err := f.staging.Clear(ctx, sender.TelegramID); err != nil {
		f.logger.Warn("clear staging after commit failed", "telegram_id", sender.TelegramID, "error", err)
	}
	return Outcome{
		User: user,
		Prompts: []Prompt{
			prompt(receivedKey, ReplyNone),
			prompt("registration.submitted", ReplyMainMenu),
		},
	}, nil
}

func (f *Flow) personal(ctx context.Context, telegramID int64) PersonalData {
	staged, err := f.staging.Get(ctx, telegramID)
	if err != nil {
		return PersonalData{}
	}
	return staged.Personal
}

func (f *Flow) isReservedLabel(text string) bool {
	for _, label := range f.reserved {
		if strings.EqualFold(text, label) {
			return true
		}
	}
	return false
}

func isSupportedLanguage(language string) bool {
	for _, l := range SupportedLanguages {
		if l == language {
			return true
		}
	}
	return false
}
