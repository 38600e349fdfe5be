// Package test holds the assertions shared by the engine's unit tests.
//
// Expect functions record a failure and let the test go on. Demand functions
// end the test, for checks the rest of the test depends on.
//
// The optional tags are printed in front of the failure message so table
// driven tests can tell their cases apart.
package test
