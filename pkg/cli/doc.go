/*
Package cli provides shared helpers for the callisto command: output
formatting, command error wrapping, and signal-aware contexts.

Output Formatting:

Command results render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal Handling:

Long-running commands use a context cancelled on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext()
	defer stop()
*/
package cli
