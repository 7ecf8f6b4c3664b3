// Package platform reads pack sources without following symlinks.
package platform
