// Package storage writes downloaded images into the output directory.
//
// Files are named "<unix-millis>_<hash><ext>" where hash is the xxhash64 of
// the source URL modulo 999999 and ext comes from the URL path allow-list
// (jpg, jpeg, png, webp, bmp, gif; default jpg). When a name is taken the
// millisecond component is advanced, so existing files are never overwritten.
//
// Writes are atomic: data goes to a temporary file in the output directory
// that is renamed into place only when the copy succeeded and the size is
// within bounds.
//
// Usage:
//
//	manager, err := storage.NewManager("imagenes")
//	if err != nil {
//	    return err
//	}
//	saved, err := manager.Save(resp.Body, imageURL, storage.Bounds{})
//	if err != nil {
//	    // no file was written
//	}
//	fmt.Println(saved.Path, saved.Size)
package storage
