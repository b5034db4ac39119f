// Package mem provides low-level memory allocation utilities.
package mem
