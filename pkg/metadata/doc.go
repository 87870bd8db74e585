// Package metadata records dimensions and size of downloaded images.
//
// A Recorder decodes each file (JPEG, PNG, GIF, WebP and BMP are registered),
// stats it, and inserts one image_metadata row through a Store. Stores open a
// short-lived connection per insert, bounded by the store timeout:
//
//   - postgres: pgx v5, DSN built from the IMGHARVEST_DB_* settings
//   - sqlite: the pure-Go modernc driver, table created on first use
//   - sidecar: an <image>.json file in a directory apart from the images
//
// Recording never fails the download. An undecodable file is stored with
// NULL width and height, and store errors are only logged.
package metadata
