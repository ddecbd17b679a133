package command

import "io"

type commonOutputFormatter struct {
	errorOutput   error
	commandOutput CommandResult

	out    io.Writer
	errOut io.Writer
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}
