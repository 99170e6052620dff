package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/fxpulse/internal/analyze"
	"github.com/Alias1177/fxpulse/internal/config"
	"github.com/Alias1177/fxpulse/models"
)

type sentItem struct {
	kind        string // text, photo, action
	chatID      int64
	text        string
	path        string
	fileExisted bool
	keyboard    bool
}

type fakeSender struct {
	mu        sync.Mutex
	sent      []sentItem
	failPhoto bool
	failText  string // fail text messages containing this substring
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		_, hasKeyboard := m.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		s.sent = append(s.sent, sentItem{kind: "text", chatID: m.ChatID, text: m.Text, keyboard: hasKeyboard})
		if s.failText != "" && strings.Contains(m.Text, s.failText) {
			return tgbotapi.Message{}, errors.New("Bad Request: chat not found")
		}
	case tgbotapi.PhotoConfig:
		path := string(m.File.(tgbotapi.FilePath))
		_, statErr := os.Stat(path)
		_, hasKeyboard := m.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		s.sent = append(s.sent, sentItem{kind: "photo", chatID: m.ChatID, text: m.Caption, path: path, fileExisted: statErr == nil, keyboard: hasKeyboard})
		if s.failPhoto {
			return tgbotapi.Message{}, errors.New("Request Entity Too Large")
		}
	default:
		s.sent = append(s.sent, sentItem{kind: "other"})
	}
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := c.(tgbotapi.ChatActionConfig); ok {
		s.sent = append(s.sent, sentItem{kind: "action", chatID: a.ChatID, text: a.Action})
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) ofKind(kind string) []sentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentItem
	for _, item := range s.sent {
		if item.kind == kind {
			out = append(out, item)
		}
	}
	return out
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	daily   *models.PriceSeries
	demo    map[string]bool
	panicOn map[string]bool
	calls   []string
	times   []time.Time
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, pair string) analyze.Outcome {
	a.mu.Lock()
	a.calls = append(a.calls, pair)
	a.times = append(a.times, time.Now())
	a.mu.Unlock()

	if a.panicOn[pair] {
		panic("index out of range")
	}
	res := models.AnalysisResult{
		Pair:           pair,
		CurrentPrice:   1.26512,
		DailyATR:       84.3,
		Trend:          models.TrendUp,
		Volatility:     models.VolatilityMedium,
		Recommendation: "Consider buying. Recommended stop-loss: 25 pips",
		Timestamp:      time.Date(2025, 6, 2, 9, 5, 0, 0, time.UTC),
	}
	if a.demo[pair] {
		res.IsDemo = true
		return analyze.Outcome{Source: analyze.SourceDemo, Result: res, Cause: analyze.ErrDataUnavailable}
	}
	return analyze.Outcome{Source: analyze.SourceReal, Result: res, Daily: a.daily}
}

type fakeRenderer struct {
	dir   string
	err   error
	calls int
}

func (r *fakeRenderer) Render(series *models.PriceSeries, title string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	path := filepath.Join(r.dir, strings.ReplaceAll(title, "/", "")+".png")
	return path, os.WriteFile(path, []byte("\x89PNG"), 0o644)
}

func loadPairs(t *testing.T) *models.PairSet {
	t.Helper()
	pairs, err := config.LoadPairs("")
	require.NoError(t, err)
	return pairs
}

func testDaily(t *testing.T) *models.PriceSeries {
	t.Helper()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := []models.PriceBar{
		{Time: start, Open: 1.25, High: 1.26, Low: 1.24, Close: 1.255},
		{Time: start.AddDate(0, 0, 1), Open: 1.255, High: 1.27, Low: 1.25, Close: 1.265},
	}
	s, err := models.NewSeries("GBPUSD=X", "1d", bars)
	require.NoError(t, err)
	return s
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

func newTestDispatcher(t *testing.T, sender *fakeSender, analyzer *fakeAnalyzer, renderer Renderer) *Dispatcher {
	t.Helper()
	return NewDispatcher(sender, analyzer, renderer, loadPairs(t), Options{BatchSize: 4, BatchDelay: time.Millisecond})
}

func TestHandleMessage_Routing(t *testing.T) {
	tests := []struct {
		name     string
		message  *tgbotapi.Message
		wantPair string
	}{
		{name: "pair command", message: commandMessage(7, "/gbpusd"), wantPair: "GBPUSD"},
		{name: "pair command addressed to bot", message: commandMessage(7, "/usdchf@fxpulse_bot"), wantPair: "USDCHF"},
		{name: "keyboard caption", message: textMessage(7, "💴 USD/JPY"), wantPair: "USDJPY"},
		{name: "free text with slash", message: textMessage(7, "eur/usd"), wantPair: "EURUSD"},
		{name: "free text with space", message: textMessage(7, "nzd usd"), wantPair: "NZDUSD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			analyzer := &fakeAnalyzer{}
			d := newTestDispatcher(t, sender, analyzer, nil)

			d.HandleMessage(context.Background(), tt.message)

			assert.Equal(t, []string{tt.wantPair}, analyzer.calls)
			require.Len(t, sender.ofKind("action"), 1)
			assert.Equal(t, tgbotapi.ChatTyping, sender.ofKind("action")[0].text)

			texts := sender.ofKind("text")
			require.Len(t, texts, 1)
			assert.Equal(t, int64(7), texts[0].chatID)
			assert.Contains(t, texts[0].text, displayName(tt.wantPair)+" Analysis")
			assert.True(t, texts[0].keyboard)
		})
	}
}

func TestHandleMessage_HelpAndUnknown(t *testing.T) {
	sender := &fakeSender{}
	analyzer := &fakeAnalyzer{}
	d := newTestDispatcher(t, sender, analyzer, nil)

	d.HandleMessage(context.Background(), commandMessage(1, "/start"))
	d.HandleMessage(context.Background(), textMessage(1, HelpButton))
	d.HandleMessage(context.Background(), textMessage(1, "what is the weather"))
	d.HandleMessage(context.Background(), commandMessage(1, "/xauusd"))

	assert.Empty(t, analyzer.calls)
	texts := sender.ofKind("text")
	require.Len(t, texts, 4)
	assert.Contains(t, texts[0].text, "/gbpusd - GBP/USD analysis")
	assert.True(t, texts[0].keyboard)
	assert.Equal(t, texts[0].text, texts[1].text)
	assert.Equal(t, notUnderstoodText, texts[2].text)
	assert.True(t, texts[2].keyboard)
	assert.Equal(t, unknownCommandText, texts[3].text)
}

func TestHandleUpdate_IgnoresNonMessages(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(t, sender, &fakeAnalyzer{}, nil)

	d.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	assert.Empty(t, sender.sent)
}

func TestSendAnalysis_PhotoThenRemovesChart(t *testing.T) {
	sender := &fakeSender{}
	renderer := &fakeRenderer{dir: t.TempDir()}
	d := newTestDispatcher(t, sender, &fakeAnalyzer{daily: testDaily(t)}, renderer)

	out, err := d.SendAnalysis(context.Background(), 3, "GBPUSD", false)
	require.NoError(t, err)
	assert.False(t, out.IsDemo())

	photos := sender.ofKind("photo")
	require.Len(t, photos, 1)
	assert.True(t, photos[0].fileExisted, "chart must exist while sending")
	assert.Contains(t, photos[0].text, "GBP/USD Analysis")
	assert.True(t, photos[0].keyboard)
	assert.Empty(t, sender.ofKind("text"))

	_, statErr := os.Stat(photos[0].path)
	assert.True(t, os.IsNotExist(statErr), "chart must be removed after sending")
}

func TestSendAnalysis_PhotoFailure(t *testing.T) {
	sender := &fakeSender{failPhoto: true}
	renderer := &fakeRenderer{dir: t.TempDir()}
	d := newTestDispatcher(t, sender, &fakeAnalyzer{daily: testDaily(t)}, renderer)

	_, err := d.SendAnalysis(context.Background(), 3, "GBPUSD", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)

	photos := sender.ofKind("photo")
	require.Len(t, photos, 1)
	_, statErr := os.Stat(photos[0].path)
	assert.True(t, os.IsNotExist(statErr))

	texts := sender.ofKind("text")
	require.Len(t, texts, 1)
	assert.Equal(t, deliveryErrorText("GBPUSD"), texts[0].text)
}

func TestSendAnalysis_TextWhenNoChart(t *testing.T) {
	t.Run("demo outcome is not charted", func(t *testing.T) {
		sender := &fakeSender{}
		renderer := &fakeRenderer{dir: t.TempDir()}
		d := newTestDispatcher(t, sender, &fakeAnalyzer{daily: testDaily(t), demo: map[string]bool{"EURUSD": true}}, renderer)

		out, err := d.SendAnalysis(context.Background(), 3, "EURUSD", false)
		require.NoError(t, err)
		assert.True(t, out.IsDemo())
		assert.Zero(t, renderer.calls)

		texts := sender.ofKind("text")
		require.Len(t, texts, 1)
		assert.True(t, strings.HasPrefix(texts[0].text, "🟡 <b>DEMO DATA</b>"))
	})

	t.Run("render failure", func(t *testing.T) {
		sender := &fakeSender{}
		renderer := &fakeRenderer{err: errors.New("invalid data range")}
		d := newTestDispatcher(t, sender, &fakeAnalyzer{daily: testDaily(t)}, renderer)

		_, err := d.SendAnalysis(context.Background(), 3, "EURUSD", false)
		require.NoError(t, err)
		assert.Equal(t, 1, renderer.calls)
		assert.Empty(t, sender.ofKind("photo"))
		assert.Len(t, sender.ofKind("text"), 1)
	})

	t.Run("text failure", func(t *testing.T) {
		sender := &fakeSender{failText: "Analysis"}
		d := newTestDispatcher(t, sender, &fakeAnalyzer{}, nil)

		_, err := d.SendAnalysis(context.Background(), 3, "EURUSD", false)
		assert.ErrorIs(t, err, ErrDelivery)
		texts := sender.ofKind("text")
		require.Len(t, texts, 2)
		assert.Equal(t, deliveryErrorText("EURUSD"), texts[1].text)
	})
}

func TestRunBatch_IsolatesFailingPair(t *testing.T) {
	sender := &fakeSender{}
	analyzer := &fakeAnalyzer{panicOn: map[string]bool{"EURUSD": true}}
	d := newTestDispatcher(t, sender, analyzer, nil)

	results := d.RunBatch(context.Background(), 5, "command")

	require.Len(t, results, 4)
	assert.Equal(t, []string{"GBPUSD", "EURUSD", "USDJPY", "AUDUSD"}, analyzer.calls)

	var ok int
	for _, r := range results {
		if r.Err == nil {
			ok++
			assert.False(t, r.Outcome.IsDemo())
			continue
		}
		assert.Equal(t, "EURUSD", r.Pair)
	}
	assert.Equal(t, len(results)-1, ok)

	// silent mode: no typing indicator, no keyboard on results
	assert.Empty(t, sender.ofKind("action"))
	texts := sender.ofKind("text")
	assert.Equal(t, batchStartText, texts[0].text)
	assert.Contains(t, texts[len(texts)-1].text, "AUD/USD Analysis")
	assert.False(t, texts[len(texts)-1].keyboard)

	var failures int
	for _, item := range texts {
		if item.text == batchErrorText("EURUSD") {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestRunBatch_DeliveryFailureContinues(t *testing.T) {
	sender := &fakeSender{failText: "USD/JPY Analysis"}
	d := newTestDispatcher(t, sender, &fakeAnalyzer{}, nil)

	results := d.RunBatch(context.Background(), 5, "command")

	require.Len(t, results, 4)
	assert.ErrorIs(t, results[2].Err, ErrDelivery)
	assert.NoError(t, results[3].Err)
}

func TestRunBatch_Pacing(t *testing.T) {
	sender := &fakeSender{}
	analyzer := &fakeAnalyzer{}
	d := NewDispatcher(sender, analyzer, nil, loadPairs(t), Options{BatchSize: 3, BatchDelay: 40 * time.Millisecond})

	d.RunBatch(context.Background(), 5, "command")

	require.Len(t, analyzer.times, 3)
	for i := 1; i < len(analyzer.times); i++ {
		// the limiter may admit a request marginally early
		assert.GreaterOrEqual(t, analyzer.times[i].Sub(analyzer.times[i-1]), 35*time.Millisecond)
	}
}

func TestRunBatch_StopsOnCancel(t *testing.T) {
	sender := &fakeSender{}
	analyzer := &fakeAnalyzer{}
	d := NewDispatcher(sender, analyzer, nil, loadPairs(t), Options{BatchSize: 4, BatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := d.RunBatch(ctx, 5, "digest")

	assert.Empty(t, results)
	assert.Empty(t, analyzer.calls)
}

func TestMainKeyboard(t *testing.T) {
	kb := mainKeyboard(loadPairs(t))

	require.Len(t, kb.Keyboard, 5)
	for _, row := range kb.Keyboard {
		assert.Len(t, row, 2)
	}
	assert.Equal(t, "📊 GBP/USD", kb.Keyboard[0][0].Text)
	assert.Equal(t, AllPairsButton, kb.Keyboard[4][0].Text)
	assert.Equal(t, HelpButton, kb.Keyboard[4][1].Text)
}
