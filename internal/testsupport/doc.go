// Package testsupport builds isolated configs and stores for tests.
package testsupport
