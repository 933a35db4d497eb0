package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/metrics"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// ErrNotEligible is returned when a registrant's age falls outside every accepted band.
var ErrNotEligible = errors.New("participant not eligible")

// Store is the persistence the service depends on.
type Store interface {
	InsertParticipants(ctx context.Context, ps []model.Participant) ([]model.Participant, error)
	LatestIdentifier(ctx context.Context, code string) (string, error)
	ListParticipants(ctx context.Context) ([]model.Participant, error)
	GetParticipant(ctx context.Context, id string) (*model.Participant, error)
	FindByIdentifier(ctx context.Context, normalized string) (*model.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
	SetTeam(ctx context.Context, id string, teamID null.String) error
	MarkIDGenerated(ctx context.Context, id string) (*model.Participant, error)
	AppendBreak(ctx context.Context, id, typ string) (model.Transition, error)
	RecordScan(ctx context.Context, participantID string, rec model.AttendanceRecord, entry string, inSession bool) (model.AttendanceRecord, error)
	RecentAttendance(ctx context.Context, studentID, mode string, window time.Duration) (*model.AttendanceRecord, error)
	ListAttendance(ctx context.Context) ([]model.AttendanceRecord, error)
}

// Options configures a Service.
type Options struct {
	Bands       category.Bands
	Broker      feed.Broker
	Clock       ScanClock
	DedupWindow time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

// Service coordinates registration, scanning and deduplication.
type Service struct {
	store       Store
	seq         *identifier.Sequence
	bands       category.Bands
	broker      feed.Broker
	clock       ScanClock
	dedupWindow time.Duration
	log         *zap.Logger
	now         func() time.Time
}

// NewService creates a service backed by a store and an id sequence.
func NewService(st Store, seq *identifier.Sequence, opts Options) *Service {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Bands == (category.Bands{}) {
		opts.Bands = category.Defaults().Get(category.ProfilePreview)
	}
	if opts.Clock == (ScanClock{}) {
		opts.Clock = DefaultScanClock()
	}
	return &Service{
		store:       st,
		seq:         seq,
		bands:       opts.Bands,
		broker:      opts.Broker,
		clock:       opts.Clock,
		dedupWindow: opts.DedupWindow,
		log:         opts.Logger,
		now:         opts.Now,
	}
}

// Register validates the form, classifies every registrant, allocates identifiers
// and stores the family in one batch. The family id is the first registrant's identifier.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) ([]model.Participant, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	now := s.now()
	main := req.Participant
	base := model.Participant{
		FatherName:               strings.TrimSpace(main.FatherName),
		MotherName:               strings.TrimSpace(main.MotherName),
		PrimaryContactNumber:     strings.TrimSpace(main.PrimaryContactNumber),
		PrimaryContactRelation:   strings.TrimSpace(main.PrimaryContactRelation),
		SecondaryContactNumber:   strings.TrimSpace(main.SecondaryContactNumber),
		SecondaryContactRelation: strings.TrimSpace(main.SecondaryContactRelation),
		Email:                    strings.TrimSpace(main.Email),
		Residence:                strings.TrimSpace(main.Residence),
		ParentAgreement:          main.ParentAgreement,
		ParentSignature:          main.ParentSignature,
		MedicalConditions:        main.MedicalConditions,
		MedicalNotes:             strings.TrimSpace(main.MedicalNotes),
	}

	people := make([]model.Participant, 0, 1+len(req.Siblings))
	first := base
	first.Name = strings.TrimSpace(main.Name)
	first.DOB = category.ParseDOB(main.DOB)
	first.Age = category.AgeAt(first.DOB, now)
	people = append(people, first)
	for _, sib := range req.Siblings {
		p := base
		p.Name = strings.TrimSpace(sib.Name)
		p.DOB = category.ParseDOB(sib.DOB)
		p.Age = category.AgeAt(p.DOB, now)
		if !p.Age.Valid && sib.Age != nil {
			p.Age = null.IntFrom(*sib.Age)
		}
		people = append(people, p)
	}

	for i := range people {
		if !people[i].Age.Valid {
			return nil, validate.Fields(validate.FieldError{Field: fieldFor(i, "dob"), Message: "date of birth must not be in the future"})
		}
		res := s.bands.Classify(people[i].Age.Int)
		if !res.Accepted {
			return nil, fmt.Errorf("%w: %s is %d", ErrNotEligible, people[i].Name, people[i].Age.Int)
		}
		people[i].Category = res.Label
		people[i].CategoryCode = res.Code
	}

	for i := range people {
		id, err := s.seq.Participant(ctx, people[i].CategoryCode)
		if err != nil {
			return nil, err
		}
		people[i].Identifier = id
	}
	family := null.StringFrom(people[0].Identifier)
	for i := range people {
		people[i].FamilyID = family
	}

	saved, err := s.store.InsertParticipants(ctx, people)
	if err != nil {
		return nil, err
	}
	for _, p := range saved {
		metrics.Registrations.WithLabelValues(p.CategoryCode).Inc()
	}
	s.log.Info("registered family", zap.String("family_id", family.String), zap.Int("count", len(saved)))
	s.notify(ctx, feed.Participants)
	return saved, nil
}

func fieldFor(i int, field string) string {
	if i == 0 {
		return "participant." + field
	}
	return fmt.Sprintf("siblings[%d].%s", i-1, field)
}

// ListParticipants returns the full participant collection.
func (s *Service) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	return s.store.ListParticipants(ctx)
}

// ListAttendance returns the full attendance collection.
func (s *Service) ListAttendance(ctx context.Context) ([]model.AttendanceRecord, error) {
	return s.store.ListAttendance(ctx)
}

// GetParticipant returns one participant or store.ErrNotFound.
func (s *Service) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	p, err := s.store.GetParticipant(ctx, id)
	if err != nil {
		return model.Participant{}, err
	}
	if p == nil {
		return model.Participant{}, store.ErrNotFound
	}
	return *p, nil
}

// DeleteParticipant removes a participant.
func (s *Service) DeleteParticipant(ctx context.Context, id string) error {
	if err := s.store.DeleteParticipant(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, feed.Participants)
	return nil
}

// AssignTeam sets or clears a participant's team.
func (s *Service) AssignTeam(ctx context.Context, id string, teamID null.String) error {
	if err := s.store.SetTeam(ctx, id, teamID); err != nil {
		return err
	}
	s.notify(ctx, feed.Participants, feed.Teams)
	return nil
}

// MarkCardGenerated records that the participant's badge was produced.
func (s *Service) MarkCardGenerated(ctx context.Context, id string) (model.Participant, error) {
	p, err := s.store.MarkIDGenerated(ctx, id)
	if err != nil {
		return model.Participant{}, err
	}
	if p == nil {
		return model.Participant{}, store.ErrNotFound
	}
	s.notify(ctx, feed.Participants)
	return *p, nil
}

func (s *Service) notify(ctx context.Context, collections ...string) {
	if s.broker == nil {
		return
	}
	for _, c := range collections {
		if err := s.broker.Notify(ctx, c); err != nil {
			s.log.Warn("change notification failed", zap.String("collection", c), zap.Error(err))
		}
	}
}
