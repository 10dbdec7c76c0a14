package cli

import (
	"strconv"

	"mt5-terminal/internal/models"
	"mt5-terminal/pkg/utils"
)

// renderAccount prints an account snapshot.
func renderAccount(output *Output, account models.AccountSnapshot) {
	output.Printf("  Balance:     %s\n", utils.FormatCurrency(account.Balance))
	output.Printf("  Equity:      %s\n", utils.FormatCurrency(account.Equity))
	output.Printf("  Profit:      %s\n", output.ColoredString(output.ProfitColor(account.Profit), utils.FormatProfit(account.Profit)))
	output.Printf("  Free Margin: %s\n", utils.FormatCurrency(account.FreeMargin))
}

// renderPositions prints the open position collection.
func renderPositions(output *Output, positions []models.Position) {
	if len(positions) == 0 {
		output.Dim("No open positions")
		return
	}

	output.Printf("%-10s %-8s %-5s %-7s %-10s %-10s %-10s %-10s %s\n",
		"TICKET", "SYMBOL", "SIDE", "LOTS", "OPEN", "CURRENT", "SL", "TP", "PROFIT")

	for _, p := range positions {
		side := output.Green("BUY")
		if p.Side == models.PositionSell {
			side = output.Red("SELL")
		}
		profit := output.ColoredString(output.ProfitColor(p.Profit), utils.FormatProfit(p.Profit))
		output.Printf("%-10d %-8s %-14s %-7s %-10s %-10s %-10s %-10s %s\n",
			p.Ticket, p.Symbol, side, utils.FormatLots(p.VolumeLots),
			utils.FormatPrice(p.PriceOpen), utils.FormatPrice(p.PriceCurrent),
			utils.FormatPrice(p.StopLoss), utils.FormatPrice(p.TakeProfit), profit)
	}
}

// renderSignal prints a signal with its indicator snapshot.
func renderSignal(output *Output, signal models.Signal, patternBadges bool) {
	var class string
	switch signal.Class {
	case models.SignalBuy:
		class = output.Green(signal.Class.String())
	case models.SignalSell:
		class = output.Red(signal.Class.String())
	default:
		class = output.Yellow(signal.Class.String())
	}

	output.Printf("Signal: %s  Confidence: %s\n", class, utils.FormatConfidence(signal.Confidence))
	if signal.Text != "" {
		output.Dim("  %s", signal.Text)
	}
	output.Printf("  RSI: %.2f  MACD: %.5f  ADX: %.2f  ATR: %.5f\n",
		signal.Indicators.RSI, signal.Indicators.MACD,
		signal.Indicators.ADX, signal.Indicators.ATR)

	if patternBadges {
		output.Printf("  Patterns: %s bullish, %s bearish\n",
			output.Green(strconv.Itoa(signal.BullishPatterns)),
			output.Red(strconv.Itoa(signal.BearishPatterns)))
	}
}

// renderLogs prints the backend log tail.
func renderLogs(output *Output, entries []models.LogEntry) {
	if len(entries) == 0 {
		output.Dim("No log entries")
		return
	}

	for _, e := range entries {
		line := e.Timestamp + " [" + string(e.Level) + "] " + e.Message
		switch e.Level {
		case models.LogLevelError:
			output.Error("%s", line)
		case models.LogLevelWarning:
			output.Warning("%s", line)
		default:
			output.Println(line)
		}
	}
}
