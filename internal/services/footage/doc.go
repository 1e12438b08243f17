// Package footage searches a Pexels-compatible stock video API.
//
// Each result is reduced to the single rendition closest to the target
// canvas for the configured orientation. Results shorter than the minimum
// clip length are skipped. Search results can be cached in Redis.
package footage
