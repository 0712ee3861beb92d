package execshell

// CommandEventObserver receives lifecycle notifications while external
// commands run, letting the CLI surface progress without parsing logs.
type CommandEventObserver interface {
	// CommandStarted fires before the command process is spawned.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the command finished with a result,
	// whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the command could not run at all.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type discardCommandEvents struct{}

func (discardCommandEvents) CommandStarted(ShellCommand)                    {}
func (discardCommandEvents) CommandCompleted(ShellCommand, ExecutionResult) {}
func (discardCommandEvents) CommandExecutionFailed(ShellCommand, error)     {}
