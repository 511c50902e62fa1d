package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/routlang/routc/internal/lexer"
)

var (
	showPos    bool
	onlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex <input.rout>",
	Short: "Tokenize a source file and print the resulting tokens",
	Long: `lex runs only the lexer stage and prints the resulting tokens.

This is useful for debugging the lexer itself, or a piece of source
that doesn't parse yet.

Examples:
  # Tokenize a file
  routc lex program.rout

  # Show token positions
  routc lex --show-pos program.rout

  # Show only illegal tokens
  routc lex --only-errors program.rout`,
	Args: cobra.ExactArgs(1),
	RunE: lexScript,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&onlyErrors, "only-errors", false, "show only illegal tokens")
}

func lexScript(cmd *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		fmt.Printf("Tokenizing: %s\n", filename)
		fmt.Printf("Input length: %d bytes\n", len(content))
		fmt.Println("---")
	}

	l := lexer.New(string(content))

	tokenCount := 0
	errorCount := 0

	for {
		tok := l.NextToken()

		if onlyErrors && tok.Type != lexer.ILLEGAL {
			if tok.Type == lexer.EOF {
				break
			}
			continue
		}

		tokenCount++
		if tok.Type == lexer.ILLEGAL {
			errorCount++
		}

		printToken(tok)

		if tok.Type == lexer.EOF {
			break
		}
	}

	if verbose {
		fmt.Println("---")
		fmt.Printf("Total tokens: %d\n", tokenCount)
		if errorCount > 0 {
			fmt.Printf("Errors: %d\n", errorCount)
		}
	}

	if onlyErrors && errorCount > 0 {
		return fmt.Errorf("found %d illegal token(s)", errorCount)
	}

	return nil
}

func printToken(tok lexer.Token) {
	var output string

	if tok.Type == lexer.EOF {
		output = "EOF"
	} else if tok.Type == lexer.ILLEGAL {
		output = fmt.Sprintf("ILLEGAL: %q", tok.Literal)
	} else if tok.Literal == "" {
		output = tok.Type.String()
	} else {
		output = fmt.Sprintf("%-12s %q", tok.Type, tok.Literal)
	}

	if showPos {
		output += fmt.Sprintf(" @%d:%d", tok.Pos.Line, tok.Pos.Column)
	}

	fmt.Println(output)
}
