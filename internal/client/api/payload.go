package api

import "encoding/json"

// Credentials is an access/refresh token pair extracted from a login or
// refresh response.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// User is the account profile attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// credentialPayload absorbs every token response shape the service has
// shipped: flat camelCase fields, snake_case fields, a bare "token" field,
// and any of those nested under a "message" or "data" envelope. Extraction
// walks an ordered candidate list and takes the first non-empty value rather
// than guessing at one canonical shape.
type credentialPayload struct {
	AccessToken       string `json:"accessToken"`
	AccessTokenSnake  string `json:"access_token"`
	Token             string `json:"token"`
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`

	User *User `json:"user"`

	Message *credentialPayload `json:"message"`
	Data    *credentialPayload `json:"data"`
}

func (p *credentialPayload) accessToken() string {
	for _, candidate := range []string{p.AccessToken, p.AccessTokenSnake, p.Token} {
		if candidate != "" {
			return candidate
		}
	}
	if p.Message != nil {
		if t := p.Message.accessToken(); t != "" {
			return t
		}
	}
	if p.Data != nil {
		if t := p.Data.accessToken(); t != "" {
			return t
		}
	}
	return ""
}

func (p *credentialPayload) refreshToken() string {
	for _, candidate := range []string{p.RefreshToken, p.RefreshTokenSnake} {
		if candidate != "" {
			return candidate
		}
	}
	if p.Message != nil {
		if t := p.Message.refreshToken(); t != "" {
			return t
		}
	}
	if p.Data != nil {
		if t := p.Data.refreshToken(); t != "" {
			return t
		}
	}
	return ""
}

func (p *credentialPayload) user() *User {
	if p.User != nil {
		return p.User
	}
	if p.Message != nil {
		if u := p.Message.user(); u != nil {
			return u
		}
	}
	if p.Data != nil {
		if u := p.Data.user(); u != nil {
			return u
		}
	}
	return nil
}

// credentials collapses the payload into the extracted pair.
func (p *credentialPayload) credentials() Credentials {
	return Credentials{
		AccessToken:  p.accessToken(),
		RefreshToken: p.refreshToken(),
	}
}

// decodeUser accepts the profile endpoint's two shapes: {"user": {...}} and a
// bare user object.
func decodeUser(body []byte) *User {
	var wrapped struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User
	}

	var bare User
	if err := json.Unmarshal(body, &bare); err == nil && (bare.ID != "" || bare.Email != "") {
		return &bare
	}
	return nil
}
