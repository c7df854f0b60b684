package monitor

import "errors"

// ErrNoAnalyzer is returned by Gaps when the monitor was built without a corpus store.
var ErrNoAnalyzer = errors.New("gap analysis requires a database connection")
