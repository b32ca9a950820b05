// Package forms binds DTOs to editable fields and drives the submit
// lifecycle: Pristine -> Dirty -> Submitting -> (Succeeded | Failed).
// Local validation failures never leave the form; request failures become
// exactly one notification and the form stays Dirty so the user can retry.
package forms

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SanAntonik/MRS/client"
	m "github.com/SanAntonik/MRS/models"
	"github.com/SanAntonik/MRS/notify"
)

// State of a form instance.
type State string

const (
	Pristine   State = "pristine"
	Dirty      State = "dirty"
	Submitting State = "submitting"
	Succeeded  State = "succeeded"
	Failed     State = "failed"
)

// Field names an editable item field. Values match the wire names.
type Field string

const (
	FieldTitle       Field = "title"
	FieldFranchise   Field = "franchise"
	FieldReleaseYear Field = "release_year"
	FieldGenres      Field = "genres"
	FieldVoteAverage Field = "vote_average"
	FieldVoteCount   Field = "vote_count"
	FieldDirector    Field = "director"
	FieldTopActors   Field = "top_actors"
	FieldKeywords    Field = "keywords"
)

// ItemFields lists the editable fields in display order.
var ItemFields = []Field{
	FieldTitle, FieldFranchise, FieldReleaseYear, FieldGenres,
	FieldVoteAverage, FieldVoteCount, FieldDirector, FieldTopActors, FieldKeywords,
}

var (
	// ErrInvalid means local validation blocked the submit; no network
	// call was made. Inspect FieldError for the failing fields.
	ErrInvalid = errors.New("form has validation errors")
	// ErrNothingToSubmit is the edit-form no-op guard: the form is still
	// Pristine, so a submit would be an empty patch.
	ErrNothingToSubmit = errors.New("no fields changed")
)

var validate = validator.New()

// ItemWriter is the slice of the API facade an item form needs.
type ItemWriter interface {
	CreateItem(ctx context.Context, in m.ItemCreate) (m.Item, error)
	UpdateItem(ctx context.Context, id int, in m.ItemUpdate) (m.Item, error)
}

type mode int

const (
	modeCreate mode = iota
	modeEdit
)

// ItemForm is one create or edit form instance. Not safe for concurrent
// use; a form belongs to a single interaction.
type ItemForm struct {
	mode      mode
	itemID    int
	state     State
	values    map[Field]string
	seed      map[Field]string
	fieldErrs map[Field]string
}

func createDefaults() map[Field]string {
	values := make(map[Field]string, len(ItemFields))
	for _, f := range ItemFields {
		values[f] = ""
	}
	values[FieldVoteAverage] = "0"
	values[FieldVoteCount] = "0"
	return values
}

// NewCreateItemForm starts a create form seeded with defaults.
func NewCreateItemForm() *ItemForm {
	defaults := createDefaults()
	return &ItemForm{
		mode:      modeCreate,
		state:     Pristine,
		values:    defaults,
		seed:      cloneValues(defaults),
		fieldErrs: make(map[Field]string),
	}
}

// NewEditItemForm starts an edit form seeded from an existing item.
func NewEditItemForm(item m.Item) *ItemForm {
	seed := map[Field]string{
		FieldTitle:       item.Title,
		FieldFranchise:   item.Franchise,
		FieldReleaseYear: item.ReleaseYear,
		FieldGenres:      item.Genres,
		FieldVoteAverage: strconv.FormatFloat(item.VoteAverage, 'f', -1, 64),
		FieldVoteCount:   strconv.Itoa(item.VoteCount),
		FieldDirector:    item.Director,
		FieldTopActors:   item.TopActors,
		FieldKeywords:    item.Keywords,
	}
	return &ItemForm{
		mode:      modeEdit,
		itemID:    item.ID,
		state:     Pristine,
		values:    cloneValues(seed),
		seed:      seed,
		fieldErrs: make(map[Field]string),
	}
}

func cloneValues(values map[Field]string) map[Field]string {
	out := make(map[Field]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// State returns the current lifecycle state.
func (f *ItemForm) State() State { return f.state }

// Value returns the current raw value of a field.
func (f *ItemForm) Value(field Field) string { return f.values[field] }

// FieldError returns the validation message for a field, if any.
func (f *ItemForm) FieldError(field Field) string { return f.fieldErrs[field] }

// FieldErrors returns all current validation messages keyed by field.
func (f *ItemForm) FieldErrors() map[Field]string {
	out := make(map[Field]string, len(f.fieldErrs))
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

// Set records an edit. Any edit moves a Pristine form to Dirty; setting a
// field back to its seeded value does not make the form Pristine again.
func (f *ItemForm) Set(field Field, value string) {
	if f.values[field] == value {
		return
	}
	f.values[field] = value
	if f.state == Pristine || f.state == Succeeded || f.state == Failed {
		f.state = Dirty
	}
}

// Validate runs local validation: title required, numeric fields must
// parse when provided. Failing fields are flagged; true means submittable.
func (f *ItemForm) Validate() bool {
	f.fieldErrs = make(map[Field]string)

	if strings.TrimSpace(f.values[FieldTitle]) == "" {
		f.fieldErrs[FieldTitle] = "Title is required."
	}
	if _, err := parseFloat(f.values[FieldVoteAverage]); err != nil {
		f.fieldErrs[FieldVoteAverage] = "Vote average must be a number."
	}
	if _, err := parseInt(f.values[FieldVoteCount]); err != nil {
		f.fieldErrs[FieldVoteCount] = "Vote count must be an integer."
	}
	if len(f.fieldErrs) > 0 {
		return false
	}

	// Cross-check the assembled payload against the DTO tags.
	payload, err := f.CreatePayload()
	if err != nil {
		return false
	}
	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				if ve.StructField() == "Title" {
					f.fieldErrs[FieldTitle] = "Title is required."
				}
			}
		}
		return len(f.fieldErrs) == 0
	}
	return true
}

func parseFloat(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// CreatePayload assembles the full create body from the current values.
func (f *ItemForm) CreatePayload() (m.ItemCreate, error) {
	voteAverage, err := parseFloat(f.values[FieldVoteAverage])
	if err != nil {
		return m.ItemCreate{}, err
	}
	voteCount, err := parseInt(f.values[FieldVoteCount])
	if err != nil {
		return m.ItemCreate{}, err
	}
	return m.ItemCreate{
		Title:       f.values[FieldTitle],
		Franchise:   f.values[FieldFranchise],
		ReleaseYear: f.values[FieldReleaseYear],
		Genres:      f.values[FieldGenres],
		VoteAverage: voteAverage,
		VoteCount:   voteCount,
		Director:    f.values[FieldDirector],
		TopActors:   f.values[FieldTopActors],
		Keywords:    f.values[FieldKeywords],
	}, nil
}

// UpdatePayload assembles a partial patch containing only the fields whose
// value differs from the seed.
func (f *ItemForm) UpdatePayload() (m.ItemUpdate, error) {
	var patch m.ItemUpdate
	for _, field := range ItemFields {
		if f.values[field] == f.seed[field] {
			continue
		}
		value := f.values[field]
		switch field {
		case FieldTitle:
			patch.Title = &value
		case FieldFranchise:
			patch.Franchise = &value
		case FieldReleaseYear:
			patch.ReleaseYear = &value
		case FieldGenres:
			patch.Genres = &value
		case FieldVoteAverage:
			parsed, err := parseFloat(value)
			if err != nil {
				return m.ItemUpdate{}, err
			}
			patch.VoteAverage = &parsed
		case FieldVoteCount:
			parsed, err := parseInt(value)
			if err != nil {
				return m.ItemUpdate{}, err
			}
			patch.VoteCount = &parsed
		case FieldDirector:
			patch.Director = &value
		case FieldTopActors:
			patch.TopActors = &value
		case FieldKeywords:
			patch.Keywords = &value
		}
	}
	return patch, nil
}

// Submit validates and sends the form. The notifier hears about request
// failures and successes only; validation failures stay on the fields.
// onSettled runs after the request settles either way, mirroring the
// query-invalidation hook of the table view.
func (f *ItemForm) Submit(ctx context.Context, svc ItemWriter, notifier notify.Notifier, onSettled func()) error {
	if f.mode == modeEdit && f.state == Pristine {
		return ErrNothingToSubmit
	}
	if !f.Validate() {
		return ErrInvalid
	}

	var err error
	var patch m.ItemUpdate
	if f.mode == modeEdit {
		patch, err = f.UpdatePayload()
		if err != nil {
			return err
		}
		// Edits reverted back to the seed net out to an empty patch; that
		// submit is a no-op, same as an untouched form.
		if patch.IsEmpty() {
			f.state = Pristine
			return ErrNothingToSubmit
		}
	}

	f.state = Submitting
	if f.mode == modeCreate {
		var payload m.ItemCreate
		payload, err = f.CreatePayload()
		if err == nil {
			_, err = svc.CreateItem(ctx, payload)
		}
	} else {
		_, err = svc.UpdateItem(ctx, f.itemID, patch)
	}
	if onSettled != nil {
		defer onSettled()
	}

	if err != nil {
		// Stay Dirty so the user can retry without re-entering data.
		f.state = Dirty
		notifier.Notify("Something went wrong.", failureDetail(err), notify.Error)
		return err
	}

	if f.mode == modeCreate {
		notifier.Notify("Success!", "Item created successfully.", notify.Success)
		defaults := createDefaults()
		f.values = defaults
		f.seed = cloneValues(defaults)
		f.fieldErrs = make(map[Field]string)
		f.state = Pristine
	} else {
		notifier.Notify("Success!", "Item updated successfully.", notify.Success)
		f.state = Succeeded
	}
	return nil
}

func failureDetail(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail.String()
	}
	return err.Error()
}

// Registrar is the slice of the API facade the register form needs.
type Registrar interface {
	RegisterUser(ctx context.Context, in m.UserRegister) (m.User, error)
}

// RegisterForm is the account signup form.
type RegisterForm struct {
	Email    string
	Password string
	FullName string

	state     State
	fieldErrs map[string]string
}

func NewRegisterForm() *RegisterForm {
	return &RegisterForm{state: Pristine, fieldErrs: make(map[string]string)}
}

func (f *RegisterForm) State() State { return f.state }

// FieldError returns the validation message for "email" or "password".
func (f *RegisterForm) FieldError(field string) string { return f.fieldErrs[field] }

// FieldErrors returns all current validation messages keyed by field.
func (f *RegisterForm) FieldErrors() map[string]string {
	out := make(map[string]string, len(f.fieldErrs))
	for k, v := range f.fieldErrs {
		out[k] = v
	}
	return out
}

// SetEmail and SetPassword record edits and dirty the form.
func (f *RegisterForm) SetEmail(value string) {
	f.Email = value
	f.markDirty()
}

func (f *RegisterForm) SetPassword(value string) {
	f.Password = value
	f.markDirty()
}

func (f *RegisterForm) SetFullName(value string) {
	f.FullName = value
	f.markDirty()
}

func (f *RegisterForm) markDirty() {
	if f.state == Pristine || f.state == Failed {
		f.state = Dirty
	}
}

// Validate checks email shape and password length.
func (f *RegisterForm) Validate() bool {
	f.fieldErrs = make(map[string]string)

	payload := m.UserRegister{Email: f.Email, Password: f.Password, FullName: f.FullName}
	err := validate.Struct(payload)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			switch ve.StructField() {
			case "Email":
				if ve.Tag() == "required" {
					f.fieldErrs["email"] = "Email is required"
				} else {
					f.fieldErrs["email"] = "Invalid email address"
				}
			case "Password":
				if ve.Tag() == "required" {
					f.fieldErrs["password"] = "Password is required"
				} else {
					f.fieldErrs["password"] = "Password must be at least 4 characters"
				}
			}
		}
	}
	return len(f.fieldErrs) == 0
}

// Submit validates and registers the account.
func (f *RegisterForm) Submit(ctx context.Context, svc Registrar, notifier notify.Notifier) error {
	if !f.Validate() {
		return ErrInvalid
	}

	f.state = Submitting
	_, err := svc.RegisterUser(ctx, m.UserRegister{Email: f.Email, Password: f.Password, FullName: f.FullName})
	if err != nil {
		f.state = Dirty
		notifier.Notify("Error", "Failed to create account. Please try again.", notify.Error)
		return err
	}

	f.state = Succeeded
	notifier.Notify("Account created.", "Your account has been successfully created. Please log in.", notify.Success)
	return nil
}
