package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sentinela-gateway/internal/domain"
)

const (
	complaintKeyPrefix = "denuncia:"
	complaintIndexKey  = "denuncia:index"
	complaintsCounter  = "stats:denuncias:total"
	protocolPrefix     = "SNT-"
)

// ComplaintAccepted is the confirmation shown after a successful submission.
const ComplaintAccepted = "Denúncia registrada com sucesso"

type ComplaintService struct {
	kv      KV
	limiter *RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// ComplaintInput holds the raw submitted fields. Empty means absent.
type ComplaintInput struct {
	ClientID    string
	Description string
	Subject     string
	Email       string
	Phone       string
	Area        string
}

type ComplaintReceipt struct {
	ID       string
	Protocol string
}

func NewComplaintService(kv KV, logger *slog.Logger) (*ComplaintService, error) {
	if kv == nil {
		return nil, errors.New("usecase: kv store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter, err := NewRateLimiter(kv)
	if err != nil {
		return nil, err
	}
	return &ComplaintService{kv: kv, limiter: limiter, logger: logger, now: time.Now}, nil
}

// Submit stores a new complaint and returns its id and protocol code.
func (s *ComplaintService) Submit(ctx context.Context, in ComplaintInput) (ComplaintReceipt, error) {
	allowed, err := s.limiter.Allow(ctx, ComplaintPolicy, in.ClientID)
	if err != nil {
		return ComplaintReceipt{}, newError(ErrorInternal, "rate_limit_store_error", err)
	}
	if !allowed {
		return ComplaintReceipt{}, newUserError(ErrorRateLimited, "complaint_rate_limited", ComplaintPolicy.Message)
	}
	if verr := validateComplaint(in); verr != nil {
		return ComplaintReceipt{}, verr
	}

	c := s.newComplaint(in)
	var g errgroup.Group
	g.Go(func() error {
		return s.kv.HSet(ctx, complaintKeyPrefix+c.ID, c.Fields())
	})
	g.Go(func() error {
		if err := s.kv.ZAdd(ctx, complaintIndexKey, float64(c.CreatedAtMillis), c.ID); err != nil {
			s.logger.WarnContext(ctx, "complaint index write failed", "complaintId", c.ID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.kv.Incr(ctx, complaintsCounter); err != nil {
			s.logger.WarnContext(ctx, "complaint counter increment failed", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ComplaintReceipt{}, newError(ErrorInternal, "complaint_write_error", err)
	}

	s.logger.InfoContext(ctx, "complaint recorded", "complaintId", c.ID, "protocol", c.Protocol)
	return ComplaintReceipt{ID: c.ID, Protocol: c.Protocol}, nil
}

func (s *ComplaintService) newComplaint(in ComplaintInput) domain.Complaint {
	now := s.now().UTC()
	ms := now.UnixMilli()
	ts := now.Format(domain.TimeLayout)

	var subject *string
	if sub := optionalText(in.Subject); sub != nil {
		clipped := clip(*sub, maxSubject)
		subject = &clipped
	}
	return domain.Complaint{
		ID:          newUUID(),
		Protocol:    newProtocol(ms),
		Subject:     subject,
		Description: strings.TrimSpace(in.Description),
		Contact: domain.Contact{
			Email: optionalText(in.Email),
			Phone: optionalText(in.Phone),
		},
		Area:            optionalText(in.Area),
		Status:          domain.StatusReceived,
		PartialClientIP: clip(in.ClientID, partialClientIPLen),
		CreatedAt:       ts,
		UpdatedAt:       ts,
		CreatedAtMillis: ms,
	}
}

// newProtocol encodes the creation time as upper-case base 36. Two complaints
// in the same millisecond share a protocol; the id stays unique.
func newProtocol(ms int64) string {
	return protocolPrefix + strings.ToUpper(strconv.FormatInt(ms, 36))
}
