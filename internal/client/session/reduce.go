package session

import (
	"errors"
	"strings"

	"loyalty/internal/client/api"
	"loyalty/internal/client/resource"
	"loyalty/internal/shared/models"
)

type event interface{ isEvent() }

// tokenChanged is delivered by the credential store subscription.
type tokenChanged struct{ token string }

// refreshRequested invalidates channels and asks for a refetch. When
// sameToken is set the request only applies if the session token is still
// token, so a mutation's follow-up refresh cannot outlive the session it was
// made in.
type refreshRequested struct {
	channels  []Channel
	token     string
	sameToken bool
}

// refreshCompleted carries the outcome of one fetch, tagged with the
// generation it was issued under.
type refreshCompleted struct {
	channel Channel
	gen     uint64
	value   any
	err     error
}

func (tokenChanged) isEvent()     {}
func (refreshRequested) isEvent() {}
func (refreshCompleted) isEvent() {}

// fetch is an effect returned by reduce: load channel under generation gen.
type fetch struct {
	channel Channel
	gen     uint64
}

// reduce is the only place state transitions happen. It is pure: the caller
// publishes the returned state and runs the returned fetches.
func reduce(prev State, ev event) (State, []fetch) {
	switch e := ev.(type) {
	case tokenChanged:
		return reduceToken(prev, e.token)
	case refreshRequested:
		return reduceRefresh(prev, e)
	case refreshCompleted:
		next, _ := reduceCompleted(prev, e)
		return next, nil
	default:
		return prev, nil
	}
}

// reduceRefresh drops mutation refreshes from an earlier session, and keeps
// session-scoped channels in Loading while logged out. Only the public
// business list can be fetched anonymously.
func reduceRefresh(prev State, e refreshRequested) (State, []fetch) {
	if e.sameToken && e.token != prev.token {
		return prev, nil
	}
	chs := e.channels
	if !prev.IsLoggedIn {
		chs = make([]Channel, 0, len(e.channels))
		for _, ch := range e.channels {
			if ch == ChannelBusinesses {
				chs = append(chs, ch)
			}
		}
	}
	if len(chs) == 0 {
		return prev, nil
	}
	return issue(prev, chs...)
}

func reduceToken(prev State, raw string) (State, []fetch) {
	tok := strings.TrimSpace(raw)
	if prev.tokenSeen && tok == prev.token {
		return prev, nil
	}
	next := prev
	next.token = tok
	next.tokenSeen = true
	next.IsLoggedIn = tok != ""
	next.IsBusinessOwner = false
	if !next.IsLoggedIn {
		// Bumping every generation orphans in-flight fetches of the old session.
		for _, ch := range AllChannels {
			next.gens[ch]++
			next.setLoading(ch)
		}
		return next, nil
	}
	return issue(next, AllChannels...)
}

// issue starts a new generation on each channel and blanks it to Loading.
func issue(prev State, chs ...Channel) (State, []fetch) {
	next := prev
	fetches := make([]fetch, 0, len(chs))
	seen := make(map[Channel]bool, len(chs))
	for _, ch := range chs {
		if ch < 0 || ch >= channelCount || seen[ch] {
			continue
		}
		seen[ch] = true
		next.gens[ch]++
		next.setLoading(ch)
		fetches = append(fetches, fetch{channel: ch, gen: next.gens[ch]})
	}
	return next, fetches
}

// reduceCompleted applies a fetch result. The boolean is false when the
// result was stale and discarded.
func reduceCompleted(prev State, e refreshCompleted) (State, bool) {
	if e.channel < 0 || e.channel >= channelCount || e.gen != prev.gens[e.channel] {
		return prev, false
	}
	next := prev
	switch e.channel {
	case ChannelUser:
		if e.err != nil {
			next.User = resource.Failure[models.User](e.err.Error())
			break
		}
		u, _ := e.value.(models.User)
		next.User = resource.Success(u)
		next.IsBusinessOwner = u.IsBusinessOwner
	case ChannelBusinesses:
		if e.err != nil {
			next.Businesses = resource.Failure[[]models.BusinessWithRewards](e.err.Error())
			break
		}
		list, _ := e.value.([]models.BusinessWithRewards)
		next.Businesses = resource.Success(list)
	case ChannelOwnBusiness:
		switch {
		case isAbsent(e.err):
			next.OwnBusiness = resource.Success[*models.BusinessWithRewards](nil)
		case e.err != nil:
			next.OwnBusiness = resource.Failure[*models.BusinessWithRewards](e.err.Error())
		default:
			b, _ := e.value.(*models.BusinessWithRewards)
			next.OwnBusiness = resource.Success(b)
		}
	case ChannelEnrollments:
		if e.err != nil {
			next.Enrollments = resource.Failure[[]models.UserEnrollment](e.err.Error())
			break
		}
		list, _ := e.value.([]models.UserEnrollment)
		next.Enrollments = resource.Success(list)
	case ChannelCustomers:
		switch {
		case isAbsent(e.err):
			next.Customers = resource.Success([]models.BusinessEnrollment{})
		case e.err != nil:
			next.Customers = resource.Failure[[]models.BusinessEnrollment](e.err.Error())
		default:
			list, _ := e.value.([]models.BusinessEnrollment)
			next.Customers = resource.Success(list)
		}
	}
	return next, true
}

// isAbsent reports whether err means "the caller has no business": either the
// server found none, or the caller is not an owner at all.
func isAbsent(err error) bool {
	return err != nil && (errors.Is(err, api.ErrNotFound) || api.IsForbidden(err))
}
