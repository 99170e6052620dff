package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/Alias1177/fxpulse/models"
)

const (
	AllPairsButton = "🔄 All pairs"
	HelpButton     = "❓ Help"
)

// displayName turns GBPUSD into GBP/USD
func displayName(pair string) string {
	if len(pair) == 6 {
		return pair[:3] + "/" + pair[3:]
	}
	return pair
}

func headerEmoji(t models.Trend) string {
	switch {
	case t.IsBullish():
		return "📈"
	case t.IsBearish():
		return "📉"
	default:
		return "➡️"
	}
}

// FormatAnalysis renders a result as a Telegram HTML message
func FormatAnalysis(res models.AnalysisResult) string {
	var sb strings.Builder

	if res.IsDemo {
		sb.WriteString("🟡 <b>DEMO DATA</b>\n")
	}
	sb.WriteString(fmt.Sprintf("<b>%s %s Analysis</b>\n\n", headerEmoji(res.Trend), html.EscapeString(displayName(res.Pair))))

	sb.WriteString(fmt.Sprintf("💰 <b>Current price:</b> <code>%.5f</code>\n", res.CurrentPrice))
	sb.WriteString(fmt.Sprintf("📊 <b>Daily ATR:</b> <code>%.1f</code> pips\n", res.DailyATR))
	sb.WriteString(fmt.Sprintf("🎯 <b>Trend:</b> %s\n", res.Trend.Label()))
	sb.WriteString(fmt.Sprintf("🌪️ <b>Volatility:</b> %s\n", res.Volatility.Label()))

	if res.Stats != nil {
		sb.WriteString("\n📐 <b>Last 30 days:</b>\n")
		sb.WriteString(fmt.Sprintf("Avg range <code>%.1f</code> pips, max <code>%.1f</code> pips\n",
			res.Stats.AvgDailyRangePips, res.Stats.MaxDailyRangePips))
		sb.WriteString(fmt.Sprintf("Daily close volatility <code>%.2f%%</code>\n", res.Stats.VolatilityPercent))
	}

	sb.WriteString("\n💡 <b>Recommendations:</b>\n")
	sb.WriteString(html.EscapeString(res.Recommendation))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("⏰ <i>Updated: %s</i>\n\n", res.FormattedTime()))
	sb.WriteString("<code>-------------------------</code>\n")
	sb.WriteString("⚠️ <i>Not investment advice</i>")

	return sb.String()
}

// welcomeText lists commands and supported pairs
func welcomeText(pairs *models.PairSet) string {
	var sb strings.Builder
	sb.WriteString("🤖 <b>Forex Pulse Bot</b>\n\n")
	sb.WriteString("<b>Welcome!</b> I analyze major currency pairs.\n\n")
	sb.WriteString("<b>Commands:</b>\n")
	sb.WriteString("/start - Start\n")
	for _, p := range pairs.All() {
		sb.WriteString(fmt.Sprintf("/%s - %s analysis\n", strings.ToLower(p.Name), html.EscapeString(p.Display)))
	}
	sb.WriteString("/all - Main pairs at once\n")
	sb.WriteString("/help - Help\n\n")
	sb.WriteString("<b>Or just use the buttons below, or type a pair like EUR/USD.</b>\n\n")
	sb.WriteString("<b>What I do:</b>\n")
	sb.WriteString("• Detect trends\n")
	sb.WriteString("• Measure volatility (ATR)\n")
	sb.WriteString("• Suggest stop-loss distances\n")
	return sb.String()
}

const (
	unknownCommandText = "❌ Unknown command. See /help"
	notUnderstoodText  = "❌ I don't understand. Use the buttons or a command from /help"
	batchStartText     = "🔄 Analyzing the main pairs..."
)

func batchErrorText(pair string) string {
	return fmt.Sprintf("❌ Failed to analyze %s", displayName(pair))
}

func deliveryErrorText(pair string) string {
	return fmt.Sprintf("❌ Something went wrong while analyzing %s. Please try again later.", displayName(pair))
}
