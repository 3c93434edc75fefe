package callengine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectpipe/outreach-backend/internal/callengine"
	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// --- Fakes ---

type fakeCallLogRepo struct {
	logs     []*model.CallLog
	lastCall map[int]*model.CallLog
}

func newFakeCallLogRepo() *fakeCallLogRepo {
	return &fakeCallLogRepo{lastCall: map[int]*model.CallLog{}}
}

func (f *fakeCallLogRepo) Record(c *model.CallLog) error {
	f.logs = append(f.logs, c)
	f.lastCall[c.ProspectID] = c
	return nil
}

func (f *fakeCallLogRepo) LastCall(prospectID int) (*model.CallLog, error) {
	return f.lastCall[prospectID], nil
}

func (f *fakeCallLogRepo) ListByProspect(prospectID int, limit int) ([]*model.CallLog, error) {
	var out []*model.CallLog
	for _, l := range f.logs {
		if l.ProspectID == prospectID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeProspectRepo struct {
	channelStates map[int]string
}

func newFakeProspectRepo() *fakeProspectRepo {
	return &fakeProspectRepo{channelStates: map[int]string{}}
}

func (f *fakeProspectRepo) GetByID(id int) (*model.Prospect, error)         { return nil, nil }
func (f *fakeProspectRepo) FindByEmail(a string) (*model.Prospect, error)   { return nil, nil }
func (f *fakeProspectRepo) UpdatePipelineState(id int, state string) error  { return nil }
func (f *fakeProspectRepo) StampLastTouch(id int, at time.Time) error       { return nil }
func (f *fakeProspectRepo) ListEligible(campaignID int, exclude []string) ([]*model.Prospect, error) {
	return nil, nil
}

func (f *fakeProspectRepo) UpdateChannelState(id int, channel, state string) error {
	f.channelStates[id] = state
	return nil
}

type fakeRateRepo struct {
	counts map[string]int
}

func newFakeRateRepo() *fakeRateRepo { return &fakeRateRepo{counts: map[string]int{}} }

func (f *fakeRateRepo) Increment(channel, scope, bucket string, ceiling int) error {
	f.counts[channel+"|"+scope+"|"+bucket]++
	return nil
}

func (f *fakeRateRepo) GetCount(channel, scope, bucket string) (int, error) {
	return f.counts[channel+"|"+scope+"|"+bucket], nil
}

type fakeVoiceProvider struct {
	dial       *provider.DialResult
	dialErr    error
	conv       *provider.ConversationResult
	convErr    error
	voicemails []string
	placed     int
}

func (f *fakeVoiceProvider) PlaceCall(ctx context.Context, number, personaID string) (*provider.DialResult, error) {
	f.placed++
	return f.dial, f.dialErr
}

func (f *fakeVoiceProvider) RunConversation(ctx context.Context, callID string) (*provider.ConversationResult, error) {
	return f.conv, f.convErr
}

func (f *fakeVoiceProvider) DeliverVoicemail(ctx context.Context, callID, script string) error {
	f.voicemails = append(f.voicemails, script)
	return nil
}

// --- Helpers ---

// Wednesday, mid-window in UTC.
var wednesdayNoon = time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine *callengine.Engine
	calls  *fakeCallLogRepo
	rates  *fakeRateRepo
	pros   *fakeProspectRepo
	voice  *fakeVoiceProvider
	clock  time.Time
}

func newFixture(voice *fakeVoiceProvider) *engineFixture {
	fx := &engineFixture{
		calls: newFakeCallLogRepo(),
		rates: newFakeRateRepo(),
		pros:  newFakeProspectRepo(),
		voice: voice,
		clock: wednesdayNoon,
	}
	fx.engine = &callengine.Engine{
		Calls:     fx.calls,
		Prospects: fx.pros,
		Rates:     fx.rates,
		Voice:     voice,
		Router:    callengine.NewPersonaRouter([]string{"ava", "ben"}),
		Cfg:       callengine.DefaultConfig(),
		Now:       func() time.Time { return fx.clock },
	}
	return fx
}

func (fx *engineFixture) tick(d time.Duration) { fx.clock = fx.clock.Add(d) }

func prospectWithPhone(id int) *model.Prospect {
	return &model.Prospect{ID: id, Phone: "+15550100", VoiceState: statemachine.VoiceNotCalled}
}

func skipReason(t *testing.T, err error) string {
	t.Helper()
	var skip *apperrors.SkipError
	require.True(t, errors.As(err, &skip), "expected SkipError, got %v", err)
	return skip.Reason
}

// --- Tests ---

func TestAttemptAnsweredHuman(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c-1", Status: model.CallAnswered, AMD: provider.AMDHuman},
		conv: &provider.ConversationResult{Outcome: model.OutcomeConnected, DurationSeconds: 95, TranscriptRef: "tr-1"},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	require.NoError(t, err)
	assert.Equal(t, model.CallAnswered, log.Status)
	assert.Equal(t, model.OutcomeConnected, log.Outcome)
	assert.Equal(t, 95, log.DurationSeconds)
	assert.Equal(t, "tr-1", log.TranscriptRef)
	require.Len(t, fx.calls.logs, 1)

	// Voice state advanced and both quota buckets counted.
	assert.Equal(t, statemachine.VoiceAnswered, fx.pros.channelStates[1])
	scope := model.CampaignScope(7)
	daily, _ := fx.rates.GetCount(model.ChannelVoice, scope, model.DayBucket(wednesdayNoon))
	hourly, _ := fx.rates.GetCount(model.ChannelVoice, scope, model.HourBucket(wednesdayNoon))
	assert.Equal(t, 1, daily)
	assert.Equal(t, 1, hourly)
}

func TestAttemptAnsweringMachineGetsVoicemail(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c-2", Status: model.CallAnswered, AMD: provider.AMDMachine},
	}
	fx := newFixture(voice)

	prospect := prospectWithPhone(2)
	prospect.FirstName = "Alice"
	log, err := fx.engine.Attempt(context.Background(), prospect, &model.Campaign{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, model.CallVoicemail, log.Status)
	assert.Equal(t, model.OutcomeVoicemail, log.Outcome)
	require.Len(t, voice.voicemails, 1)
	assert.Contains(t, voice.voicemails[0], "Alice")
	assert.NotContains(t, voice.voicemails[0], "{first_name}")
	assert.Equal(t, statemachine.VoiceVoicemail, fx.pros.channelStates[2])
}

func TestAttemptNoAMDVerdictIsNoAnswer(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c-3", Status: model.CallAnswered, AMD: provider.AMDNone},
	}
	fx := newFixture(voice)

	log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(3), &model.Campaign{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, model.CallNoAnswer, log.Status)
	assert.Equal(t, model.OutcomeNoAnswer, log.Outcome)
}

func TestAttemptFailedDialStillLogs(t *testing.T) {
	voice := &fakeVoiceProvider{dialErr: errors.New("trunk unavailable")}
	fx := newFixture(voice)

	log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(4), &model.Campaign{ID: 7})
	require.Error(t, err)
	require.NotNil(t, log)
	assert.Equal(t, model.CallFailed, log.Status)
	require.Len(t, fx.calls.logs, 1)
}

func TestAttemptDeniedWithoutPhone(t *testing.T) {
	fx := newFixture(&fakeVoiceProvider{})
	_, err := fx.engine.Attempt(context.Background(), &model.Prospect{ID: 5}, &model.Campaign{ID: 7})
	assert.Contains(t, skipReason(t, err), "no phone number")
	assert.Empty(t, fx.calls.logs)
	assert.Zero(t, fx.voice.placed)
}

func TestCircuitBreakerAfterThreeConsecutiveRejections(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallAnswered, AMD: provider.AMDHuman},
		conv: &provider.ConversationResult{Outcome: model.OutcomeNotInterested},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	for i := 1; i <= 3; i++ {
		log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(i), campaign)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeNotInterested, log.Outcome)
		fx.tick(time.Minute)
	}
	assert.True(t, fx.engine.BreakerOpen())

	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(4), campaign)
	assert.Contains(t, skipReason(t, err), "circuit breaker open")
	assert.Equal(t, 3, voice.placed)

	fx.engine.ResetBreaker()
	fx.tick(time.Minute)
	log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(4), campaign)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotInterested, log.Outcome)
	assert.Equal(t, 4, voice.placed)
}

func TestBreakerResetsOnPositiveOutcome(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallAnswered, AMD: provider.AMDHuman},
		conv: &provider.ConversationResult{Outcome: model.OutcomeNotInterested},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	for i := 1; i <= 2; i++ {
		_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(i), campaign)
		require.NoError(t, err)
		fx.tick(time.Minute)
	}

	voice.conv = &provider.ConversationResult{Outcome: model.OutcomeBooked, Booked: true}
	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(3), campaign)
	require.NoError(t, err)
	assert.False(t, fx.engine.BreakerOpen())
}

func TestBreakerNeedsConsecutiveRejections(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallAnswered, AMD: provider.AMDHuman},
		conv: &provider.ConversationResult{Outcome: model.OutcomeNotInterested},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	require.NoError(t, err)
	fx.tick(time.Minute)

	// A no-answer in between breaks the streak.
	voice.dial = &provider.DialResult{CallID: "c", Status: model.CallNoAnswer}
	_, err = fx.engine.Attempt(context.Background(), prospectWithPhone(2), campaign)
	require.NoError(t, err)
	fx.tick(time.Minute)

	voice.dial = &provider.DialResult{CallID: "c", Status: model.CallAnswered, AMD: provider.AMDHuman}
	for i := 3; i <= 4; i++ {
		_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(i), campaign)
		require.NoError(t, err)
		fx.tick(time.Minute)
	}

	// Two rejections after the break, not three in a row: still closed.
	assert.False(t, fx.engine.BreakerOpen())
	log, err := fx.engine.Attempt(context.Background(), prospectWithPhone(5), campaign)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotInterested, log.Outcome)
	assert.Equal(t, 5, voice.placed)
}

func TestMinimumGapBetweenDials(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallNoAnswer},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	require.NoError(t, err)

	// Second dial immediately after is inside the 30s gap.
	_, err = fx.engine.Attempt(context.Background(), prospectWithPhone(2), campaign)
	assert.Contains(t, skipReason(t, err), "minimum gap")

	fx.tick(31 * time.Second)
	_, err = fx.engine.Attempt(context.Background(), prospectWithPhone(2), campaign)
	require.NoError(t, err)
}

func TestCooldownWindow(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallNoAnswer},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}
	prospect := prospectWithPhone(1)

	fx.calls.lastCall[1] = &model.CallLog{
		ProspectID: 1,
		Outcome:    model.OutcomeNoAnswer,
		CreatedAt:  fx.clock.Add(-24 * time.Hour),
	}
	_, err := fx.engine.Attempt(context.Background(), prospect, campaign)
	assert.Contains(t, skipReason(t, err), "cooldown")

	// Outside the 3-day window the prospect is callable again.
	fx.calls.lastCall[1].CreatedAt = fx.clock.Add(-4 * 24 * time.Hour)
	_, err = fx.engine.Attempt(context.Background(), prospect, campaign)
	require.NoError(t, err)
}

func TestCallbackRequestOverridesCooldown(t *testing.T) {
	voice := &fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallNoAnswer},
	}
	fx := newFixture(voice)
	campaign := &model.Campaign{ID: 7}

	callbackAt := fx.clock.Add(-time.Hour)
	fx.calls.lastCall[1] = &model.CallLog{
		ProspectID: 1,
		Outcome:    model.OutcomeCallback,
		CallbackAt: &callbackAt,
		CreatedAt:  fx.clock.Add(-24 * time.Hour),
	}

	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	require.NoError(t, err)
	assert.Equal(t, 1, voice.placed)
}

func TestBusinessHoursInProspectTimezone(t *testing.T) {
	fx := newFixture(&fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallNoAnswer},
	})
	campaign := &model.Campaign{ID: 7}

	// Saturday is never callable.
	fx.clock = time.Date(2025, 6, 14, 14, 0, 0, 0, time.UTC)
	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	assert.Contains(t, skipReason(t, err), "business hours")

	// 14:00 UTC on Wednesday is 07:00 in Los Angeles.
	fx.clock = wednesdayNoon
	prospect := prospectWithPhone(1)
	prospect.Timezone = "America/Los_Angeles"
	_, err = fx.engine.Attempt(context.Background(), prospect, campaign)
	assert.Contains(t, skipReason(t, err), "business hours")

	// Same instant is 10:00 in New York.
	prospect.Timezone = "America/New_York"
	_, err = fx.engine.Attempt(context.Background(), prospect, campaign)
	require.NoError(t, err)
}

func TestVoiceQuotaDenial(t *testing.T) {
	fx := newFixture(&fakeVoiceProvider{
		dial: &provider.DialResult{CallID: "c", Status: model.CallNoAnswer},
	})
	campaign := &model.Campaign{ID: 7, VoiceDaily: 2}
	scope := model.CampaignScope(7)
	fx.rates.counts[model.ChannelVoice+"|"+scope+"|"+model.DayBucket(fx.clock)] = 2

	_, err := fx.engine.Attempt(context.Background(), prospectWithPhone(1), campaign)
	assert.Contains(t, skipReason(t, err), "daily limit reached for voice")
	assert.Zero(t, fx.voice.placed)
}

func TestPersonaRouterLeastUsedFirst(t *testing.T) {
	router := callengine.NewPersonaRouter([]string{"ava", "ben"})
	first := router.Pick()
	second := router.Pick()
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, []string{"ava", "ben"}, []string{first, second})

	// Third pick cycles back to the least used.
	assert.Equal(t, first, router.Pick())
}

func TestPersonaRouterEmpty(t *testing.T) {
	router := callengine.NewPersonaRouter(nil)
	assert.Empty(t, router.Pick())
}
