// Package fire turns a due trigger into a command request on its destination
// and announces the firing on the event bus.
//
// Publishing is best effort: transport failures are logged and absorbed so a
// broken destination never stops the schedule. Only a destination that cannot
// be parsed is reported back to the caller.
package fire
