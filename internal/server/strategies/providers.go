package strategies

import (
	"encoding/json"
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Profile is the identity a provider asserts after a successful exchange.
type Profile struct {
	ID          string
	DisplayName string
	// Raw is the provider payload, stored verbatim on the user record.
	Raw json.RawMessage
}

// Provider describes an OAuth 2.0 identity provider.
type Provider struct {
	Name       Name
	Endpoint   oauth2.Endpoint
	ProfileURL string
	Scopes     []string
	// PKCE enables the S256 code challenge (required by Twitter).
	PKCE   bool
	Decode func(body []byte) (Profile, error)
}

var errNoSubject = errors.New("provider profile has no id")

// TwitterProvider targets the Twitter (X) OAuth 2.0 API.
func TwitterProvider() Provider {
	return Provider{
		Name: Twitter,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://twitter.com/i/oauth2/authorize",
			TokenURL:  "https://api.twitter.com/2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		ProfileURL: "https://api.twitter.com/2/users/me",
		Scopes:     []string{"users.read", "tweet.read"},
		PKCE:       true,
		Decode:     decodeTwitterProfile,
	}
}

// FacebookProvider targets the Facebook Graph API.
func FacebookProvider() Provider {
	return Provider{
		Name:       Facebook,
		Endpoint:   facebook.Endpoint,
		ProfileURL: "https://graph.facebook.com/me?fields=id,name",
		Decode:     decodeFacebookProfile,
	}
}

func decodeTwitterProfile(body []byte) (Profile, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Profile{}, err
	}
	if len(envelope.Data) == 0 {
		return Profile{}, errNoSubject
	}

	var u struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(envelope.Data, &u); err != nil {
		return Profile{}, err
	}
	if u.ID == "" {
		return Profile{}, errNoSubject
	}

	name := u.Name
	if name == "" {
		name = u.Username
	}
	return Profile{ID: u.ID, DisplayName: name, Raw: envelope.Data}, nil
}

func decodeFacebookProfile(body []byte) (Profile, error) {
	var u struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return Profile{}, err
	}
	if u.ID == "" {
		return Profile{}, errNoSubject
	}
	return Profile{ID: u.ID, DisplayName: u.Name, Raw: json.RawMessage(body)}, nil
}
