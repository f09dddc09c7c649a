package usecase

// Per-product image limits
const (
	MaxImagesPerProduct  = 5
	maxEvenImagesPerSlot = 4
	minEvenImagesPerSlot = 1
)

// AssignOnePerProduct gives the i-th product the i-th image. Products beyond the image
// count get none, and an empty entry (a failed upload) leaves its product without one.
func AssignOnePerProduct(products int, images []string) [][]string {
	assigned := make([][]string, products)
	for i := 0; i < products && i < len(images); i++ {
		if images[i] != "" {
			assigned[i] = []string{images[i]}
		}
	}
	return assigned
}

// AssignEvenly hands out images sequentially, floor(images/products) per product bounded
// to [1, 4], until the list is exhausted. Trailing products may receive nothing.
func AssignEvenly(products int, images []string) [][]string {
	assigned := make([][]string, products)
	if products == 0 || len(images) == 0 {
		return assigned
	}

	per := len(images) / products
	if per > maxEvenImagesPerSlot {
		per = maxEvenImagesPerSlot
	}
	if per < minEvenImagesPerSlot {
		per = minEvenImagesPerSlot
	}

	next := 0
	for i := 0; i < products && next < len(images); i++ {
		end := next + per
		if end > len(images) {
			end = len(images)
		}
		for _, image := range images[next:end] {
			if image != "" {
				assigned[i] = append(assigned[i], image)
			}
		}
		next = end
	}
	return assigned
}
