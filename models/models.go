package models

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Item is a persisted catalog entry as returned by the backend.
// Title is never empty for a persisted item; everything else is optional.
// ReleaseYear is stored as text on the server, not as a numeric year.
type Item struct {
	ID          int     `json:"id"`
	OwnerID     int     `json:"owner_id"`
	Title       string  `json:"title"`
	Franchise   string  `json:"franchise,omitempty"`
	ReleaseYear string  `json:"release_year,omitempty"`
	Genres      string  `json:"genres,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
	VoteCount   int     `json:"vote_count,omitempty"`
	Director    string  `json:"director,omitempty"`
	TopActors   string  `json:"top_actors,omitempty"`
	Keywords    string  `json:"keywords,omitempty"`
}

// ItemCreate is the request body for creating an item. The server assigns
// id and owner_id.
type ItemCreate struct {
	Title       string  `json:"title" validate:"required"`
	Franchise   string  `json:"franchise,omitempty"`
	ReleaseYear string  `json:"release_year,omitempty"`
	Genres      string  `json:"genres,omitempty"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Director    string  `json:"director,omitempty"`
	TopActors   string  `json:"top_actors,omitempty"`
	Keywords    string  `json:"keywords,omitempty"`
}

// ItemUpdate is a partial patch: only non-nil fields are sent, so untouched
// fields are never reintroduced as explicit nulls.
type ItemUpdate struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Franchise   *string  `json:"franchise,omitempty"`
	ReleaseYear *string  `json:"release_year,omitempty"`
	Genres      *string  `json:"genres,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	VoteCount   *int     `json:"vote_count,omitempty"`
	Director    *string  `json:"director,omitempty"`
	TopActors   *string  `json:"top_actors,omitempty"`
	Keywords    *string  `json:"keywords,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (u ItemUpdate) IsEmpty() bool {
	return u.Title == nil && u.Franchise == nil && u.ReleaseYear == nil &&
		u.Genres == nil && u.VoteAverage == nil && u.VoteCount == nil &&
		u.Director == nil && u.TopActors == nil && u.Keywords == nil
}

// ItemCollection is a paginated list response. Count is the total number of
// items matching the query, not necessarily len(Data).
type ItemCollection struct {
	Data  []Item `json:"data"`
	Count int    `json:"count"`
}

// User is the read shape for an account. The password never appears here.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	FullName    string `json:"full_name,omitempty"`
}

// UserRegister is the signup request body. Password is write-only.
type UserRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
	FullName string `json:"full_name,omitempty"`
}

// AuthToken is the login response.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is the generic server acknowledgement shape.
type Message struct {
	Message string `json:"message"`
}

// ValidationError is one entry of a server-side validation failure. Loc is
// the path to the offending field and may mix strings and array indices.
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ErrorDetail is the dynamic "detail" member of a failed response: either a
// plain string or a sequence of ValidationError. At most one of the two is
// set after a successful unmarshal.
type ErrorDetail struct {
	Plain  string
	Fields []ValidationError
}

func (d *ErrorDetail) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		d.Plain = s
		d.Fields = nil
		return nil
	}
	var fields []ValidationError
	if err := json.Unmarshal(b, &fields); err == nil {
		d.Plain = ""
		d.Fields = fields
		return nil
	}
	// Unknown shape: keep the raw payload so the user still sees something.
	d.Plain = string(b)
	d.Fields = nil
	return nil
}

func (d ErrorDetail) MarshalJSON() ([]byte, error) {
	if d.Fields != nil {
		return json.Marshal(d.Fields)
	}
	return json.Marshal(d.Plain)
}

// String normalizes the detail into a single user-visible message. Field
// entries are joined into one string.
func (d ErrorDetail) String() string {
	if len(d.Fields) == 0 {
		return d.Plain
	}
	parts := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		loc := make([]string, 0, len(f.Loc))
		for _, seg := range f.Loc {
			loc = append(loc, fmt.Sprint(seg))
		}
		if len(loc) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(loc, "."), f.Msg))
		} else {
			parts = append(parts, f.Msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ErrorEnvelope is the body shape of any failed request.
type ErrorEnvelope struct {
	Detail ErrorDetail `json:"detail"`
}
