package inference

const (
	DefaultImageSize  = 224
	DefaultTopK       = 5
	DefaultInputName  = "input"
	DefaultOutputName = "output"
	Channels          = 3
)

// ImageNet normalization used by most torchvision and Keras exports.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)
