package cli

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/tickerpulse/tickerpulse/internal/aggregate"
)

// runInteractiveMode drives the prompt loop used when no subcommand is given.
func runInteractiveMode(app *App) error {
	fmt.Println("TickerPulse - Reddit stock mention sentiment tracker")
	fmt.Println()

	for {
		action, err := PromptForNextAction()
		if err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}

		switch action {
		case "Run an analysis":
			if err := interactiveTrack(app); err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					continue
				}
				app.renderer.Error(err)
			}
		case "Look up a ticker":
			ticker, err := PromptForTicker()
			if err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					continue
				}
				return err
			}
			if err := runSentiment(app, ticker, false); err != nil {
				app.renderer.Error(err)
			}
		default:
			return nil
		}
	}
}

func interactiveTrack(app *App) error {
	subreddits, err := PromptForSubreddits(app.cfg.Subreddits)
	if err != nil {
		return err
	}

	timeframe, err := PromptForTimeframe()
	if err != nil {
		return err
	}

	tracker, err := app.budgetTracker()
	if err != nil {
		return err
	}

	confirmed, err := PromptForConfirmation(subreddits, timeframe, tracker.Remaining())
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	return runTrack(app, subreddits, timeframe, aggregate.SortByMentions, false)
}
