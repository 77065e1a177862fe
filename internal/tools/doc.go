// Package tools runs local helper programs (mkdir, scp, ssh-keygen) on the
// machine driving the session.
package tools
