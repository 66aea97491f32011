// Package cli implements the keyprov command-line interface.
//
// The root command is the install flow itself:
//
//	keyprov [flags] user@host   - Install the local public key on host
//	keyprov config [path|show]  - Inspect the effective settings
//	keyprov version             - Print build information
//	keyprov completion <shell>  - Generate a shell completion script
//
// # Install Flow
//
// Setup runs the steps in order and stops at the first failure:
//
//  1. Find the local key pair, offering to generate one with ssh-keygen
//  2. Validate the public key (ssh-rsa) before any network I/O
//  3. Resolve the password from --password, KEYPROV_PASSWORD or a prompt
//  4. Connect with password auth and the chosen host key policy
//  5. Append the key to ~/.ssh/authorized_keys unless already present
//  6. With --verify, log in again using only the key
//
// Side effects (terminal prompts, key generation, dialing) are reached
// through SetupDeps so tests can swap them out.
//
// # Flag Handling
//
// Settings layer as defaults, then the config file, then KEYPROV_*
// environment variables, then flags given on the command line. A flag
// only overrides the lower layers when it was explicitly set.
//
// # Exit Codes
//
// 0 on success, 1 for usage problems (bad destination, declined prompt,
// unusable local key, bad config) and 2 when the connection or a remote
// operation fails.
package cli
