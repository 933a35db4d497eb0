package volunteer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// Store is the persistence the service depends on.
type Store interface {
	Insert(ctx context.Context, v model.Volunteer) (model.Volunteer, error)
	LatestVolunteerID(ctx context.Context) (string, error)
	List(ctx context.Context) ([]model.Volunteer, error)
	Get(ctx context.Context, id string) (model.Volunteer, error)
	Delete(ctx context.Context, id string) error
}

// Input is the volunteer sign-up form.
type Input struct {
	FullName           string   `json:"fullName" validate:"notblank"`
	DOB                string   `json:"dob" validate:"required,datetime=2006-01-02"`
	Email              string   `json:"email" validate:"required,email"`
	Phone              string   `json:"phone" validate:"notblank"`
	PreferredRole      string   `json:"preferredRole" validate:"notblank"`
	PreferredLocation  string   `json:"preferredLocation"`
	TShirtSize         string   `json:"tshirtSize" validate:"required,oneof=XS S M L XL XXL"`
	EmergencyName      string   `json:"emergencyName" validate:"notblank"`
	EmergencyPhone     string   `json:"emergencyPhone" validate:"notblank"`
	AvailableDates     []string `json:"availableDates" validate:"min=1,dive,datetime=2006-01-02"`
	VolunteerAgreement bool     `json:"volunteerAgreement" validate:"required"`
	Signature          string   `json:"signature" validate:"notblank"`
}

// Service registers volunteers.
type Service struct {
	store  Store
	seq    *identifier.Sequence
	broker feed.Broker
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a service. broker and logger may be nil.
func NewService(st Store, counter identifier.Counter, broker feed.Broker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	latest := func(ctx context.Context, _ string) (string, error) { return st.LatestVolunteerID(ctx) }
	return &Service{
		store:  st,
		seq:    identifier.NewSequence(counter, latest),
		broker: broker,
		log:    log,
		now:    time.Now,
	}
}

// Register validates the form and stores the volunteer under the next "Volunteer N" id.
func (s *Service) Register(ctx context.Context, in Input) (model.Volunteer, error) {
	if err := validate.Struct(in); err != nil {
		return model.Volunteer{}, err
	}
	dob := category.ParseDOB(in.DOB)
	v := model.Volunteer{
		FullName:           strings.TrimSpace(in.FullName),
		DOB:                dob,
		Age:                category.AgeAt(dob, s.now()),
		Email:              strings.TrimSpace(in.Email),
		Phone:              strings.TrimSpace(in.Phone),
		PreferredRole:      in.PreferredRole,
		PreferredLocation:  in.PreferredLocation,
		TShirtSize:         in.TShirtSize,
		EmergencyName:      strings.TrimSpace(in.EmergencyName),
		EmergencyPhone:     strings.TrimSpace(in.EmergencyPhone),
		AvailableDates:     in.AvailableDates,
		VolunteerAgreement: in.VolunteerAgreement,
		Signature:          in.Signature,
	}
	id, err := s.seq.Volunteer(ctx)
	if err != nil {
		return model.Volunteer{}, err
	}
	v.VolunteerID = id
	saved, err := s.store.Insert(ctx, v)
	if err != nil {
		return model.Volunteer{}, err
	}
	s.log.Info("volunteer registered", zap.String("volunteer_id", saved.VolunteerID))
	s.notify(ctx)
	return saved, nil
}

// List returns every volunteer.
func (s *Service) List(ctx context.Context) ([]model.Volunteer, error) {
	return s.store.List(ctx)
}

// Get returns one volunteer.
func (s *Service) Get(ctx context.Context, id string) (model.Volunteer, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a volunteer.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *Service) notify(ctx context.Context) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Notify(ctx, feed.Volunteers); err != nil {
		s.log.Warn("change notification failed", zap.String("collection", feed.Volunteers), zap.Error(err))
	}
}
