// ABOUTME: Wire and domain types shared by the API client and the session layer
// ABOUTME: Users, credential pairs, exercises, history, and profile updates

package client

// User is the authenticated identity record
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Credentials is the access/refresh token pair
type Credentials struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether both tokens are present
func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// SignInResult is the /sessions response
type SignInResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Credentials returns the token pair carried by the result
func (r SignInResult) Credentials() Credentials {
	return Credentials{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// ProfileUpdate is a partial user update. Nil fields are left unchanged.
// Password changes require OldPassword.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Password    string  `json:"password,omitempty"`
	OldPassword string  `json:"old_password,omitempty"`
}

// AcceptedProfile holds the user fields the server accepted
type AcceptedProfile struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// Apply merges the accepted fields into u and returns the result
func (a AcceptedProfile) Apply(u User) User {
	if a.Name != nil {
		u.Name = *a.Name
	}
	if a.Avatar != nil {
		u.Avatar = *a.Avatar
	}
	return u
}

// Exercise is a catalog entry
type Exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      int    `json:"series"`
	Repetitions int    `json:"repetitions"`
	Group       string `json:"group"`
	Demo        string `json:"demo"`
	Thumb       string `json:"thumb"`
}

// HistoryEntry is one logged exercise
type HistoryEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Hour      string `json:"hour"`
	CreatedAt string `json:"created_at"`
}

// HistoryDay groups entries logged on the same day
type HistoryDay struct {
	Title string         `json:"title"`
	Data  []HistoryEntry `json:"data"`
}
