package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStruct(t *testing.T) {
	item := Item{
		ID:          1,
		OwnerID:     7,
		Title:       "Inception",
		ReleaseYear: "2010",
		Genres:      "Action, Sci-Fi",
		VoteAverage: 8.8,
		VoteCount:   2000000,
	}

	assert.Equal(t, "Inception", item.Title)
	assert.Equal(t, 8.8, item.VoteAverage)

	jsonData, err := json.Marshal(item)
	assert.NoError(t, err)

	var decoded Item
	err = json.Unmarshal(jsonData, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, item.Title, decoded.Title)
	assert.Equal(t, item.OwnerID, decoded.OwnerID)
}

func TestItemCollectionCountIsIndependent(t *testing.T) {
	payload := `{"data":[{"id":1,"owner_id":7,"title":"Inception"}],"count":42}`

	var col ItemCollection
	err := json.Unmarshal([]byte(payload), &col)
	require.NoError(t, err)

	assert.Len(t, col.Data, 1)
	assert.Equal(t, 42, col.Count, "count is the server total, not len(data)")
}

func TestItemUpdatePartialPatch(t *testing.T) {
	title := "New Title"
	patch := ItemUpdate{Title: &title}

	jsonData, err := json.Marshal(patch)
	require.NoError(t, err)

	// Only the supplied field may appear in the body: untouched fields must
	// not be reintroduced as explicit nulls.
	assert.JSONEq(t, `{"title":"New Title"}`, string(jsonData))
	assert.False(t, patch.IsEmpty())
	assert.True(t, ItemUpdate{}.IsEmpty())
}

func TestUserPasswordIsWriteOnly(t *testing.T) {
	reg := UserRegister{Email: "john@example.com", Password: "secret", FullName: "John Doe"}
	jsonData, err := json.Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), "password")

	user := User{ID: 1, Email: "john@example.com", IsActive: true}
	jsonData, err = json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(jsonData), "password")
}

func TestAuthTokenStruct(t *testing.T) {
	var token AuthToken
	err := json.Unmarshal([]byte(`{"access_token":"abc123","token_type":"bearer"}`), &token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
}

func TestErrorDetailPlainString(t *testing.T) {
	var env ErrorEnvelope
	err := json.Unmarshal([]byte(`{"detail":"Item not found"}`), &env)
	require.NoError(t, err)

	assert.Equal(t, "Item not found", env.Detail.Plain)
	assert.Empty(t, env.Detail.Fields)
	assert.Equal(t, "Item not found", env.Detail.String())
}

func TestErrorDetailFieldSequence(t *testing.T) {
	payload := `{"detail":[
		{"loc":["body","title"],"msg":"field required","type":"value_error.missing"},
		{"loc":["body","vote_count",0],"msg":"value is not a valid integer","type":"type_error.integer"}
	]}`

	var env ErrorEnvelope
	err := json.Unmarshal([]byte(payload), &env)
	require.NoError(t, err)

	require.Len(t, env.Detail.Fields, 2)
	assert.Equal(t, "field required", env.Detail.Fields[0].Msg)

	// Both entries join into a single display string.
	msg := env.Detail.String()
	assert.Equal(t, "body.title: field required; body.vote_count.0: value is not a valid integer", msg)
}

func TestErrorDetailUnknownShape(t *testing.T) {
	var detail ErrorDetail
	err := json.Unmarshal([]byte(`{"weird":true}`), &detail)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.String(), "unknown shapes still surface something")
}

func TestErrorDetailRoundTrip(t *testing.T) {
	detail := ErrorDetail{Fields: []ValidationError{{Loc: []any{"body", "title"}, Msg: "field required", Type: "value_error.missing"}}}
	jsonData, err := json.Marshal(detail)
	require.NoError(t, err)

	var decoded ErrorDetail
	err = json.Unmarshal(jsonData, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 1)
	assert.Equal(t, "field required", decoded.Fields[0].Msg)
}
