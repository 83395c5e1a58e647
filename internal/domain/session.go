package domain

type SessionState string

const (
	SessionUninitialized SessionState = "UNINITIALIZED"
	SessionRestoring     SessionState = "RESTORING"
	SessionAuthenticated SessionState = "AUTHENTICATED"
	SessionAnonymous     SessionState = "ANONYMOUS"
)

func (s SessionState) String() string {
	return string(s)
}

type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Session is the client's view of the authenticated state. Mutated only by
// the session manager; everyone else gets copies.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
	State        SessionState
}

// IsAuthenticated holds iff both tokens and the user are present.
func (s Session) IsAuthenticated() bool {
	return s.State == SessionAuthenticated &&
		s.AccessToken != "" && s.RefreshToken != "" && s.User != nil
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthPayload is what the auth endpoints hand back on success.
type AuthPayload struct {
	AccessToken  string
	RefreshToken string
	User         User
}
