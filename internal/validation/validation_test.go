package validation

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallGIF is a 2x1 GIF.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Single Char", "a", false},
		{"Django Specials", "a.b@c+d-e", false},
		{"Empty", "", true},
		{"Space", "user name", true},
		{"Slash", "user/name", true},
		{"Too Long", strings.Repeat("a", 151), true},
		{"Max Length", strings.Repeat("a", 150), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "correct horse", false},
		{"Exactly Min Length", "abcdefgh", false},
		{"Too Short", "abc1234", true},
		{"Numeric Only", "1234567890", true},
		{"Too Long", strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail(""))
	assert.NoError(t, ValidateEmail("test@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("user@"))
	assert.Error(t, ValidateEmail("Leo <leo@example.com>"))
	assert.Error(t, ValidateEmail("leo@localhost"))
}

func TestValidateGroupSlug(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateGroupSlug("cats_and-dogs2"))
	assert.Error(t, ValidateGroupSlug(""))
	assert.Error(t, ValidateGroupSlug("with space"))
	assert.Error(t, ValidateGroupSlug("кошки"))
	assert.Error(t, ValidateGroupSlug(strings.Repeat("a", 51)))
}

func TestForms(t *testing.T) {
	t.Parallel()
	assert.Empty(t, PostForm{Text: "hello"}.Validate())
	assert.Contains(t, PostForm{Text: "  "}.Validate(), FieldText)
	assert.Empty(t, CommentForm{Text: "nice"}.Validate())
	assert.Contains(t, CommentForm{}.Validate(), FieldText)

	errs := SignupForm{Username: "bad name", Email: "x", Password: "123"}.Validate()
	assert.Contains(t, errs, FieldUsername)
	assert.Contains(t, errs, FieldEmail)
	assert.Contains(t, errs, FieldPassword)
	assert.Empty(t, SignupForm{Username: "leo", Password: "long enough"}.Validate())
}

func TestMessageForCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RequiredMessage, MessageForCode(CodeRequired))
	assert.Empty(t, MessageForCode("<script>"))
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	t.Parallel()

	img, format, err := ValidateImage("small.gif", smallGIF, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
	assert.Equal(t, 2, img.Bounds().Dx())

	_, format, err = ValidateImage("dot.PNG", encodePNG(t), 0)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	_, _, err = ValidateImage("small.pppppp", smallGIF, 1<<20)
	assert.ErrorIs(t, err, ErrImageExtension, "valid content with an unknown extension is rejected")

	_, _, err = ValidateImage("notes.gif", []byte("just some text, not an image"), 1<<20)
	assert.ErrorIs(t, err, ErrImageContent)

	_, _, err = ValidateImage("empty.gif", nil, 1<<20)
	assert.ErrorIs(t, err, ErrImageEmpty)

	_, _, err = ValidateImage("big.gif", smallGIF, 10)
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 3, 3), []color.Color{color.Black, color.White}), nil))
	_, format, err = ValidateImage("x.gif", buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
}
