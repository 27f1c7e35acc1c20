// Package option resolves declared feature switches.
//
// Options are resolved in dependency order. For each option an override
// wins, then a declared On/Off state, and finally Auto resolution, where the
// platform guard must pass and the required probe, if any, must report the
// capability as supported. An override is final and never probes. A
// mandatory option with a declared state, or an Auto one whose guard passes,
// aborts the pass when its capability is unsupported.
package option
