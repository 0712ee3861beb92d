// Package scenarios defines the registered signing test cases and the
// services that publish, delete, and report on their channel artifacts.
package scenarios
