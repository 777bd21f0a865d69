package main

import (
	"github.com/spf13/cobra"
)

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Serve the terminal peer over SSH",
	Long: `Start an SSH server where every connection gets its own netpong session
with the mode menu. Online modes are matched against other SSH players on
this server; scores and results go to the shared database.

The host key is created at ssh.key_path (default .ssh/netpong_ed25519)
if it does not exist yet.

Examples:
  netpong ssh
  NETPONG_SSH_PORT=2222 netpong ssh

Players connect with:
  ssh -p 23234 <name>@localhost`,
	RunE: runSSH,
}

func init() {
	sshCmd.Flags().StringVar(&flagPongConfig, "pong", "", "Path to Pong tunables YAML")
}

func runSSH(cmd *cobra.Command, _ []string) error {
	r, err := newRelay()
	if err != nil {
		return err
	}
	if err := r.addSSH(); err != nil {
		r.store.Close()
		return err
	}
	return r.run(cmd.Context())
}
