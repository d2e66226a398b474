// Command quiz takes DISC, MBTI and Big Five tests in the terminal.
package main

import (
	"os"

	"github.com/turtacn/PersonaQuiz/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
