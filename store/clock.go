package store

import "time"

// timeNow is a var, not a direct time.Now call, so a test can freeze it
// without threading a clock argument through Append's exported signature.
var timeNow = time.Now
