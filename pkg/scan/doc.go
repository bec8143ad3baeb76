// Package scan runs a list of points on the stage one after another and can
// repeat that on a cron schedule. Points live in a plain text file, one
// "x,y" pair in millimetres per line.
package scan
