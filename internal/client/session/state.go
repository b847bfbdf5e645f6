package session

import (
	"loyalty/internal/client/resource"
	"loyalty/internal/shared/models"
)

// Channel identifies one independently refreshed resource.
type Channel int

const (
	ChannelUser Channel = iota
	ChannelBusinesses
	ChannelOwnBusiness
	ChannelEnrollments
	ChannelCustomers
	channelCount
)

// AllChannels lists every channel refreshed by a login.
var AllChannels = []Channel{ChannelUser, ChannelBusinesses, ChannelOwnBusiness, ChannelEnrollments, ChannelCustomers}

func (c Channel) String() string {
	switch c {
	case ChannelUser:
		return "user"
	case ChannelBusinesses:
		return "businesses"
	case ChannelOwnBusiness:
		return "own_business"
	case ChannelEnrollments:
		return "enrollments"
	case ChannelCustomers:
		return "customers"
	default:
		return "unknown"
	}
}

// State is the published snapshot of the session. Slices inside Success
// values are shared between snapshots and must be treated as read-only.
type State struct {
	IsLoggedIn      bool
	IsBusinessOwner bool

	User        resource.Resource[models.User]
	Businesses  resource.Resource[[]models.BusinessWithRewards]
	OwnBusiness resource.Resource[*models.BusinessWithRewards] // Success(nil): no business yet
	Enrollments resource.Resource[[]models.UserEnrollment]
	Customers   resource.Resource[[]models.BusinessEnrollment]

	token     string
	tokenSeen bool
	gens      [channelCount]uint64
}

// Ready reports whether the initial credential has been processed. Before
// that, IsLoggedIn is not meaningful.
func (s State) Ready() bool { return s.tokenSeen }

// Generation returns the number of refreshes issued so far on ch.
func (s State) Generation(ch Channel) uint64 {
	if ch < 0 || ch >= channelCount {
		return 0
	}
	return s.gens[ch]
}

// ResourceState returns the lifecycle state of the resource behind ch.
func (s State) ResourceState(ch Channel) resource.State {
	switch ch {
	case ChannelUser:
		return s.User.State()
	case ChannelBusinesses:
		return s.Businesses.State()
	case ChannelOwnBusiness:
		return s.OwnBusiness.State()
	case ChannelEnrollments:
		return s.Enrollments.State()
	case ChannelCustomers:
		return s.Customers.State()
	default:
		return resource.StateLoading
	}
}

// Settled reports whether none of chs is Loading.
func (s State) Settled(chs ...Channel) bool {
	for _, ch := range chs {
		if s.ResourceState(ch) == resource.StateLoading {
			return false
		}
	}
	return true
}

func (s *State) setLoading(ch Channel) {
	switch ch {
	case ChannelUser:
		s.User = resource.Loading[models.User]()
	case ChannelBusinesses:
		s.Businesses = resource.Loading[[]models.BusinessWithRewards]()
	case ChannelOwnBusiness:
		s.OwnBusiness = resource.Loading[*models.BusinessWithRewards]()
	case ChannelEnrollments:
		s.Enrollments = resource.Loading[[]models.UserEnrollment]()
	case ChannelCustomers:
		s.Customers = resource.Loading[[]models.BusinessEnrollment]()
	}
}
