// Package session holds the client-side view of the loyalty account: who is
// logged in, the business list, the caller's own business, enrollments and,
// for owners, their customers.
//
// A Store is a single-writer actor. One goroutine receives token changes from
// the credential store, refresh requests and fetch completions, and runs each
// through reduce. Fetches run concurrently, one per channel, and their results
// are applied only if no newer fetch was issued on the same channel since.
package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"loyalty/internal/client/credstore"
	"loyalty/internal/client/observe"
	"loyalty/internal/shared/models"
)

// API is the subset of the request layer the store depends on.
type API interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.TokenResponse, error)
	Login(ctx context.Context, username, password string) (models.TokenResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (models.User, error)

	ListBusinesses(ctx context.Context) ([]models.BusinessWithRewards, error)
	UpsertOwnBusiness(ctx context.Context, req models.UpsertBusinessRequest) error
	OwnBusiness(ctx context.Context) (models.BusinessWithRewards, error)
	ListBusinessEnrollments(ctx context.Context) ([]models.BusinessEnrollment, error)

	CreateReward(ctx context.Context, req models.CreateRewardRequest) error
	UpdateReward(ctx context.Context, id string, req models.UpdateRewardRequest) error
	DeleteReward(ctx context.Context, id string) error

	ListMyEnrollments(ctx context.Context) ([]models.UserEnrollment, error)
	Enroll(ctx context.Context, businessID string) error
	CancelEnrollment(ctx context.Context, businessID string) error
	AddPoints(ctx context.Context, userID string, points decimal.Decimal) (models.AddPointsResponse, error)
	RedeemReward(ctx context.Context, userID, rewardID string) (models.RedeemRewardResponse, error)
}

// TokenSink receives every token change before any fetch for it is issued.
type TokenSink interface {
	Set(token string)
}

type Options struct {
	API         API
	Credentials credstore.Store
	Tokens      TokenSink
	Logger      *logrus.Logger
	// FetchTimeout bounds each refresh; zero means no bound beyond the
	// API client's own timeout.
	FetchTimeout time.Duration
}

type Store struct {
	api           API
	creds         credstore.Store
	tokens        TokenSink
	log           *logrus.Entry
	fetchTimeout  time.Duration
	logoutTimeout time.Duration // bounds the server half of Logout

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan event
	done    chan struct{}
	closing sync.Once

	subject *observe.Subject[State]

	applied   atomic.Uint64
	discarded atomic.Uint64
}

// New starts a Store. It subscribes to opts.Credentials immediately, so the
// current token (if any) triggers the login fan-out right away.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = nopSink{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:           opts.API,
		creds:         opts.Credentials,
		tokens:        tokens,
		log:           logger.WithField("component", "session"),
		fetchTimeout:  opts.FetchTimeout,
		logoutTimeout: serverLogoutTimeout,
		ctx:           ctx,
		cancel:        cancel,
		events:        make(chan event, 64),
		done:          make(chan struct{}),
		subject:       observe.NewSubject(State{}),
	}
	updates, unsubscribe := s.creds.Subscribe()
	go s.run(updates, unsubscribe)
	return s
}

type nopSink struct{}

func (nopSink) Set(string) {}

// Close stops the actor. Fetches still in flight are cancelled and their
// results ignored. Subscriber channels are closed.
func (s *Store) Close() {
	s.closing.Do(func() {
		s.cancel()
		<-s.done
		s.subject.Close()
	})
}

func (s *Store) run(updates <-chan string, unsubscribe func()) {
	defer close(s.done)
	defer unsubscribe()
	for {
		select {
		case <-s.ctx.Done():
			return
		case tok, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			s.tokens.Set(strings.TrimSpace(tok))
			s.dispatch(tokenChanged{token: tok})
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

// dispatch runs on the actor goroutine only.
func (s *Store) dispatch(ev event) {
	prev := s.subject.Get()
	if c, ok := ev.(refreshCompleted); ok {
		if c.gen != prev.Generation(c.channel) {
			s.discarded.Add(1)
			s.log.WithFields(logrus.Fields{
				"channel": c.channel.String(),
				"gen":     c.gen,
				"latest":  prev.Generation(c.channel),
			}).Debug("stale completion discarded")
			return
		}
		s.applied.Add(1)
	}
	next, fetches := reduce(prev, ev)
	s.subject.Publish(next)
	for _, f := range fetches {
		go s.runFetch(f)
	}
}

func (s *Store) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Store) runFetch(f fetch) {
	ctx := s.ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	value, err := s.load(ctx, f.channel)
	if s.ctx.Err() != nil {
		return
	}
	entry := s.log.WithFields(logrus.Fields{"channel": f.channel.String(), "gen": f.gen})
	if err != nil && !isAbsent(err) {
		entry.WithError(err).Warn("refresh failed")
	} else {
		entry.Debug("refresh done")
	}
	s.post(refreshCompleted{channel: f.channel, gen: f.gen, value: value, err: err})
}

func (s *Store) load(ctx context.Context, ch Channel) (any, error) {
	switch ch {
	case ChannelUser:
		return s.api.CurrentUser(ctx)
	case ChannelBusinesses:
		return s.api.ListBusinesses(ctx)
	case ChannelOwnBusiness:
		b, err := s.api.OwnBusiness(ctx)
		if err != nil {
			return nil, err
		}
		return &b, nil
	case ChannelEnrollments:
		return s.api.ListMyEnrollments(ctx)
	case ChannelCustomers:
		return s.api.ListBusinessEnrollments(ctx)
	default:
		return nil, nil
	}
}

// Snapshot returns the latest published state.
func (s *Store) Snapshot() State { return s.subject.Get() }

// Subscribe delivers the current state immediately and then every change,
// conflated to the latest.
func (s *Store) Subscribe() (<-chan State, func()) { return s.subject.Subscribe() }

// WaitFor blocks until pred holds for a published state or ctx ends.
func (s *Store) WaitFor(ctx context.Context, pred func(State) bool) (State, error) {
	updates, cancel := s.Subscribe()
	defer cancel()
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return s.Snapshot(), context.Canceled
			}
			if pred(st) {
				return st, nil
			}
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Refresh invalidates the given channels and refetches them. Each channel
// blanks to Loading until its new result arrives. While logged out only
// ChannelBusinesses is fetched; the others stay Loading.
func (s *Store) Refresh(chs ...Channel) {
	if len(chs) == 0 {
		return
	}
	s.post(refreshRequested{channels: append([]Channel(nil), chs...)})
}

// refreshFor is Refresh tied to the session of token. It is a no-op once
// the token has changed.
func (s *Store) refreshFor(token string, chs ...Channel) {
	s.post(refreshRequested{channels: append([]Channel(nil), chs...), token: token, sameToken: true})
}

func (s *Store) LoadUser()        { s.Refresh(ChannelUser) }
func (s *Store) LoadBusinesses()  { s.Refresh(ChannelBusinesses) }
func (s *Store) LoadOwnBusiness() { s.Refresh(ChannelOwnBusiness) }
func (s *Store) LoadEnrollments() { s.Refresh(ChannelEnrollments) }
func (s *Store) LoadCustomers()   { s.Refresh(ChannelCustomers) }
