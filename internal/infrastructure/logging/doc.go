// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Components receive a plain *zap.Logger from Component so they do not
// depend on this package:
//
//	logger := logging.NewDefault()
//	store, err := soundscape.NewStore(ctx, profile, db, soundscape.Options{
//		Logger: logger.Component("store"),
//	})
package logging
