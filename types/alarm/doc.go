// Package alarm defines the data model for device alarm evaluation:
// the alarm rule with its triggers and shake-limit policy, the uniform
// row shape flowing through a pipeline, and the emitted alarm record.
//
// An AlarmRule is immutable once loaded. A running pipeline never mutates
// its rule; reload replaces the rule wholesale.
package alarm
