package sequence_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/sequence"
)

func TestPickTemplateByCapabilities(t *testing.T) {
	reg, err := sequence.NewRegistry()
	require.NoError(t, err)

	cases := []struct {
		name string
		caps map[string]bool
		want string
	}{
		{"both channels", map[string]bool{model.ChannelEmail: true, model.ChannelVoice: true}, "multi_channel"},
		{"email only", map[string]bool{model.ChannelEmail: true}, "email_only"},
		{"voice only", map[string]bool{model.ChannelVoice: true}, "voice_only"},
		// No contact data at all still picks something; the coordinator's
		// missing-data rule walks the sequence instead of stalling it.
		{"no channels", map[string]bool{}, "multi_channel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reg.PickTemplate(tc.caps))
		})
	}
}

func TestRegistryGetAndIDs(t *testing.T) {
	reg, err := sequence.NewRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{"multi_channel", "email_only", "voice_only"}, reg.IDs())

	tmpl, ok := reg.Get("email_only")
	require.True(t, ok)
	assert.Len(t, tmpl.Steps, 3)
	assert.Equal(t, []string{"email"}, tmpl.Requires)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestLoadRegistryOverridesAndAdds(t *testing.T) {
	dir := t.TempDir()
	custom := `
templates:
  - id: email_only
    name: Shortened cadence
    requires: [email]
    steps:
      - name: single_email
        channel: email
        action: send_email
        content: "Hi {first_name}."
        delay_days: 0
  - id: aggressive_voice
    name: Daily calls
    requires: [voice]
    steps:
      - name: call_one
        channel: voice
        action: place_call
        delay_days: 0
      - name: call_two
        channel: voice
        action: place_call
        delay_days: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0o644))

	reg, err := sequence.LoadRegistry(dir)
	require.NoError(t, err)

	tmpl, ok := reg.Get("email_only")
	require.True(t, ok)
	assert.Equal(t, "Shortened cadence", tmpl.Name)
	assert.Len(t, tmpl.Steps, 1)

	added, ok := reg.Get("aggressive_voice")
	require.True(t, ok)
	assert.Len(t, added.Steps, 2)

	// Built-ins keep their declaration order; file templates append.
	assert.Equal(t, []string{"multi_channel", "email_only", "voice_only", "aggressive_voice"}, reg.IDs())
}

func TestLoadRegistryRejectsBadTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
templates:
  - name: no id here
    steps:
      - name: step
        channel: email
`), 0o644))

	_, err := sequence.LoadRegistry(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestRenderFillsPlaceholders(t *testing.T) {
	p := &model.Prospect{FirstName: "Alice", Company: "Acme Corp"}
	got := sequence.Render("Hi {first_name}, quick note about {company}.", p)
	assert.Equal(t, "Hi Alice, quick note about Acme Corp.", got)
}

func TestRenderEmptyFieldsBecomeUnknown(t *testing.T) {
	p := &model.Prospect{}
	got := sequence.Render("Hi {first_name} {last_name}", p)
	assert.Equal(t, "Hi <unknown> <unknown>", got)
}
