// Package session holds the state shared by every host worker during one
// run: the session id, the master script list, one SeedPool per content
// hash and one MonitorGate per monitor node.
package session
