// Package config reads provider settings from ORTEXT_* environment variables.
//
//	ORTEXT_PROVIDERS=cuda
//	ORTEXT_CUDA_DEVICE_ID=1
//	ORTEXT_CUDA_CONV_ALGO_SEARCH=HEURISTIC
//	ORTEXT_CUDA_ATTENTION_BACKEND=FLASH_ATTENTION|MATH
//	ORTEXT_CUDA_EXTRA=enable_skip_layer_norm_strict_mode=1,gpu_external_alloc=0
package config
