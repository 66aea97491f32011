package keys

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

// ManualInstructions returns copy-paste steps for installing pubKey on
// dest by hand, for when the automatic install fails. An empty pubKey
// produces instructions that read the key from pubPath instead.
func ManualInstructions(dest, pubPath, pubKey string) string {
	if pubKey == "" {
		return fmt.Sprintf(`To copy your SSH key manually:

1. Display your public key:
   cat %s

2. Copy the output and add it to the remote host:
   ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && cat >> ~/.ssh/authorized_keys" << 'EOF'
   <paste your public key here>
   EOF

3. Set correct permissions:
   ssh %s "chmod 600 ~/.ssh/authorized_keys"
`, shellquote.Join(pubPath), shellquote.Join(dest), shellquote.Join(dest))
	}

	remote := "mkdir -p ~/.ssh && chmod 700 ~/.ssh && echo " + shellquote.Join(pubKey) +
		" >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"

	return fmt.Sprintf(`To copy your SSH key manually, run:

ssh %s %s
`, shellquote.Join(dest), shellquote.Join(remote))
}
