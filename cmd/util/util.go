package util

import (
	"strings"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// Kinds lists the container kinds the tools can run against
var Kinds = []string{"list", "hashmap", "sortedmap"}

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("adaptive")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupSelectionFlags adds the flags that select kinds and modes to a command
func SetupSelectionFlags(cmd *cobra.Command) {
	key := "kinds"
	cmd.Flags().String(key, strings.Join(Kinds, ","), WrapString("Comma-separated list of container kinds to run (list, hashmap, sortedmap)"))

	key = "modes"
	cmd.Flags().String(key, "slow,fast", WrapString("Comma-separated list of modes to run (slow, fast)"))

	key = "threads"
	cmd.Flags().Int(key, 8, WrapString("Number of goroutines working on a container at the same time"))
}

// GetKinds returns the configured container kinds
func GetKinds() ([]string, error) {
	var kinds []string
	for _, k := range splitList(viper.GetString("kinds")) {
		switch k {
		case "list", "hashmap", "sortedmap":
			kinds = append(kinds, k)
		default:
			return nil, errors.Newf("invalid kind %q", k)
		}
	}
	if len(kinds) == 0 {
		return nil, errors.New("no container kind selected")
	}
	return kinds, nil
}

// GetModes returns the configured modes
func GetModes() ([]adaptive.Mode, error) {
	var modes []adaptive.Mode
	for _, m := range splitList(viper.GetString("modes")) {
		mode, err := adaptive.ParseMode(m)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --modes")
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return nil, errors.New("no mode selected")
	}
	return modes, nil
}

// GetThreads returns the configured number of goroutines (at least 1)
func GetThreads() int {
	return max(viper.GetInt("threads"), 1)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
