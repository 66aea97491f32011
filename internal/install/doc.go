// Package install puts a public key into a remote user's authorized_keys.
//
// Install is idempotent: the key is appended only when the current file
// content does not already contain it, so running it twice leaves exactly
// one copy. It talks to the host through the Remote interface, which
// *sshutil.Client implements over SFTP and exec.
package install
