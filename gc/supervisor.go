package gc

import "context"

// Supervisor is the node interface consumed at the restart boundary: it
// cooperatively ends the node so that a fresh process can run Phase B
// before the chain subsystem resumes. The node's process-management code
// lives outside this module.
type Supervisor interface {
	// TerminateConductor ends the consensus/conductor loop.
	TerminateConductor(ctx context.Context) error
	// RestartProcess triggers a controlled restart of the node process.
	RestartProcess(ctx context.Context) error
}
