// Package common contains helpers shared by provisioning services:
// loopback address detection and actor identification.
package common
