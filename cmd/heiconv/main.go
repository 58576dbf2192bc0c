// Command heiconv batch-converts the HEIC/HEIF photos in a directory to
// PNG, JPEG, WEBP, or BMP.
package main

func main() {
	Execute()
}
