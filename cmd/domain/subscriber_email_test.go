package domain

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"newsletter/cmd/internal/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validEmailFixture generates realistic addresses such as "jdoe42@mailbox.org".
type validEmailFixture string

func (validEmailFixture) Generate(r *rand.Rand, _ int) reflect.Value {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	const digits = "0123456789"
	tlds := []string{"com", "net", "org", "io", "fr", "co.uk"}

	pick := func(alphabet string, n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(alphabet[r.Intn(len(alphabet))])
		}
		return b.String()
	}

	local := pick(letters, 1+r.Intn(10)) + pick(digits, r.Intn(4))
	if r.Intn(3) == 0 {
		local += "." + pick(letters, 1+r.Intn(6))
	}
	domain := pick(letters, 2+r.Intn(10)) + "." + tlds[r.Intn(len(tlds))]
	return reflect.ValueOf(validEmailFixture(local + "@" + domain))
}

func TestParseSubscriberEmail_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "missing at", in: "johndoetest.fr"},
		{name: "missing local part", in: "@test.fr"},
		{name: "missing domain", in: "john@"},
		{name: "display name form", in: "John <john@test.fr>"},
		{name: "whitespace in domain", in: "john@te st.fr"},
		{name: "invalid example from form", in: "invalidemailcom"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSubscriberEmail(tc.in)
			require.Error(t, err)
			assert.Equal(t, fault.KindValidation, fault.KindOf(err))
		})
	}
}

func TestParseSubscriberEmail_ValidAddressesAreAccepted(t *testing.T) {
	t.Parallel()

	prop := func(e validEmailFixture) bool {
		got, err := ParseSubscriberEmail(string(e))
		return err == nil && got.String() == string(e)
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Fatal(err)
	}
}

func TestParseSubscriberEmail_WithoutAtIsRejected(t *testing.T) {
	t.Parallel()

	prop := func(s string) bool {
		s = strings.ReplaceAll(s, "@", "")
		_, err := ParseSubscriberEmail(s)
		return err != nil
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Fatal(err)
	}
}

func TestParseSubscriberEmail_MessageNamesInput(t *testing.T) {
	t.Parallel()

	_, err := ParseSubscriberEmail("nope")
	require.Error(t, err)
	assert.Equal(t, "nope, is not a valid subscriber email.", fault.PublicMessage(err))
}

func TestRedactEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"jo@example.com":       "***@example.com",
		"not-an-email":         "***@***",
		"a@b@c":                "***@***",
	}
	for in, want := range cases {
		assert.Equal(t, want, RedactEmail(in), "in=%q", in)
	}
}
