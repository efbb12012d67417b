// Package runcontext captures the immutable metadata shared by every record of one audit run.
package runcontext
