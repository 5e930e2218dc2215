package storefront

// User is the signed-in visitor as reported by the auth collaborator.
type User struct {
	Username string
	Email    string
}

// Identity is the authentication capability the storefront consumes.
type Identity interface {
	IsAuthenticated() bool
	CurrentUser() (User, bool)
}

// Guest is an Identity that is never authenticated.
type Guest struct{}

func (Guest) IsAuthenticated() bool { return false }

func (Guest) CurrentUser() (User, bool) { return User{}, false }

// StaticIdentity is an Identity for a fixed, already authenticated user.
type StaticIdentity struct {
	User User
}

func (s StaticIdentity) IsAuthenticated() bool { return s.User.Username != "" }

func (s StaticIdentity) CurrentUser() (User, bool) {
	return s.User, s.IsAuthenticated()
}
