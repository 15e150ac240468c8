package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

var validTimeframes = []string{"hour", "day", "week", "month", "year", "all"}

// PromptForSubreddits lets the user pick subreddits from the configured
// roster. Defaults to all of them.
func PromptForSubreddits(options []string) ([]string, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select subreddits to track:",
		Options: options,
		Default: options,
		Help:    "Use space to toggle, enter to confirm.",
	}

	err := survey.AskOne(prompt, &selected, survey.WithValidator(func(val interface{}) error {
		answers, ok := val.([]survey.OptionAnswer)
		if !ok {
			return fmt.Errorf("invalid selection type")
		}
		if len(answers) == 0 {
			return fmt.Errorf("select at least one subreddit")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return selected, nil
}

// PromptForTimeframe asks which top listing window to analyze.
func PromptForTimeframe() (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: "Select listing timeframe:",
		Options: validTimeframes,
		Default: "day",
		Help:    "The Reddit top listing window to pull posts from.",
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// PromptForTicker asks for a single ticker symbol.
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, NVDA):",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if str == "" {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("ticker symbol too long (max 10 characters)")
		}
		matched, _ := regexp.MatchString(`^\$?[A-Z0-9.-]+$`, str)
		if !matched {
			return fmt.Errorf("invalid ticker format")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(ticker)), nil
}

// PromptForConfirmation summarizes the run and asks to proceed.
func PromptForConfirmation(subreddits []string, timeframe string, remaining int) (bool, error) {
	fmt.Printf("\nRun configuration:\n")
	fmt.Printf("  Subreddits: %s\n", strings.Join(subreddits, ", "))
	fmt.Printf("  Timeframe:  top %s\n", timeframe)
	fmt.Printf("  Budget:     %d requests remaining today\n\n", remaining)

	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Proceed with this run?",
		Default: true,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}

// PromptForNextAction asks what to do next in the interactive loop.
func PromptForNextAction() (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{
			"Run an analysis",
			"Look up a ticker",
			"Exit",
		},
		Default: "Run an analysis",
	}
	err := survey.AskOne(prompt, &choice)
	return choice, err
}

func isValidTimeframe(tf string) bool {
	for _, v := range validTimeframes {
		if v == tf {
			return true
		}
	}
	return false
}
